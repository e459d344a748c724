// Package layout describes what the dashboard page shows: sections bound to
// sources, their summary metrics and their charts.
package layout

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Section names and chart ids appear in URL paths.
var idPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Sources a section may bind to.
var Sources = []string{"crm", "erp", "warehouse"}

type Op string

const (
	OpSum           Op = "sum"
	OpCount         Op = "count"
	OpCountDistinct Op = "count_distinct"
)

type Format string

const (
	FormatMoney Format = "money"
	FormatInt   Format = "int"
)

type ChartKind string

const (
	KindBar  ChartKind = "bar"
	KindPie  ChartKind = "pie"
	KindLine ChartKind = "line"
)

type Layout struct {
	Title    string    `yaml:"title"`
	Caption  string    `yaml:"caption"`
	Filter   Filter    `yaml:"filter"`
	Sections []Section `yaml:"sections"`
}

// Filter is the page-wide date picker. When Apply is false the picker is
// shown but rows are never narrowed.
type Filter struct {
	Label string `yaml:"label"`
	Apply bool   `yaml:"apply"`
}

type Section struct {
	Name         string   `yaml:"name"`
	Title        string   `yaml:"title"`
	Source       string   `yaml:"source"`
	EmptyMessage string   `yaml:"empty_message"`
	DateColumn   string   `yaml:"date_column"`
	Metrics      []Metric `yaml:"metrics"`
	Charts       []Chart  `yaml:"charts"`
}

type Metric struct {
	Label  string `yaml:"label"`
	Op     Op     `yaml:"op"`
	Column string `yaml:"column"`
	Format Format `yaml:"format"`
}

// Chart plots Value against Category. For line charts Category is the date column.
type Chart struct {
	ID            string    `yaml:"id"`
	Kind          ChartKind `yaml:"kind"`
	Title         string    `yaml:"title"`
	Category      string    `yaml:"category"`
	Value         string    `yaml:"value"`
	CategoryLabel string    `yaml:"category_label"`
	ValueLabel    string    `yaml:"value_label"`
}

// Columns lists the columns the chart needs.
func (c Chart) Columns() []string {
	return []string{c.Category, c.Value}
}

// Label returns the axis label for a column, defaulting to the column name.
func (c Chart) Label(column string) string {
	switch {
	case column == c.Category && c.CategoryLabel != "":
		return c.CategoryLabel
	case column == c.Value && c.ValueLabel != "":
		return c.ValueLabel
	}
	return column
}

// Section returns the section called name.
func (l *Layout) Section(name string) (Section, bool) {
	for _, s := range l.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Chart returns the chart with the given id.
func (s Section) Chart(id string) (Chart, bool) {
	for _, c := range s.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Default returns the built-in layout.
func Default() *Layout {
	l, err := Parse(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("layout: built-in layout is invalid: %v", err))
	}
	return l
}

// Load reads the layout file at path, or the built-in layout when path is empty.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()
	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML layout. Unknown keys are rejected.
func Parse(r io.Reader) (*Layout, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var l Layout
	if err := dec.Decode(&l); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate reports every problem in the layout at once.
func (l *Layout) Validate() error {
	var errors []string

	if len(l.Sections) == 0 {
		errors = append(errors, "at least one section is required")
	}
	sections := make(map[string]bool)
	for i, s := range l.Sections {
		where := fmt.Sprintf("section %d (%s)", i+1, s.Name)
		if s.Name == "" {
			errors = append(errors, fmt.Sprintf("section %d: name is required", i+1))
		} else if sections[s.Name] {
			errors = append(errors, fmt.Sprintf("duplicate section name '%s'", s.Name))
		} else if !idPattern.MatchString(s.Name) {
			errors = append(errors, fmt.Sprintf("invalid section name '%s': only a-z, 0-9 and '-' are allowed", s.Name))
		}
		sections[s.Name] = true

		if !slices.Contains(Sources, s.Source) {
			errors = append(errors, fmt.Sprintf("%s: unknown source '%s': must be one of %v", where, s.Source, Sources))
		}

		for j, m := range l.Sections[i].Metrics {
			switch m.Op {
			case OpSum, OpCount, OpCountDistinct:
			default:
				errors = append(errors, fmt.Sprintf("%s metric %d: unknown op '%s'", where, j+1, m.Op))
			}
			switch m.Format {
			case "", FormatMoney, FormatInt:
			default:
				errors = append(errors, fmt.Sprintf("%s metric %d: unknown format '%s'", where, j+1, m.Format))
			}
			if m.Column == "" {
				errors = append(errors, fmt.Sprintf("%s metric %d: column is required", where, j+1))
			}
		}

		charts := make(map[string]bool)
		for j, c := range s.Charts {
			if c.ID == "" {
				errors = append(errors, fmt.Sprintf("%s chart %d: id is required", where, j+1))
			} else if charts[c.ID] {
				errors = append(errors, fmt.Sprintf("%s: duplicate chart id '%s'", where, c.ID))
			} else if !idPattern.MatchString(c.ID) {
				errors = append(errors, fmt.Sprintf("%s: invalid chart id '%s': only a-z, 0-9 and '-' are allowed", where, c.ID))
			}
			charts[c.ID] = true
			switch c.Kind {
			case KindBar, KindPie, KindLine:
			default:
				errors = append(errors, fmt.Sprintf("%s chart %s: unknown kind '%s'", where, c.ID, c.Kind))
			}
			if c.Category == "" || c.Value == "" {
				errors = append(errors, fmt.Sprintf("%s chart %s: category and value columns are required", where, c.ID))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("layout validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
