package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.False(t, f.Set)
	assert.Equal(t, "", f.String())

	f, err = ParseFilter(" 2024-01-15 ")
	require.NoError(t, err)
	assert.True(t, f.Set)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), f.Day)
	assert.Equal(t, "2024-01-15", f.String())

	for _, raw := range []string{"15/01/2024", "2024-13-01", "yesterday"} {
		_, err := ParseFilter(raw)
		assert.Error(t, err, raw)
	}
}
