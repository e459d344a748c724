package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"insight/internal/core"
	"insight/internal/dashboard"
	"insight/internal/log"
)

var templateFuncs = template.FuncMap{
	"cell": func(row []core.Value, i int) string {
		if i < len(row) {
			return row[i].String()
		}
		return ""
	},
}

// filterFromRequest reads the date query parameter. An invalid date is
// logged and treated as no filter; the returned notice explains why.
func filterFromRequest(r *http.Request) (dashboard.Filter, string) {
	raw := r.URL.Query().Get("date")
	f, err := dashboard.ParseFilter(raw)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring invalid date filter",
			log.FieldDate, raw, log.FieldError, err)
		return dashboard.Filter{}, fmt.Sprintf("Ignored invalid date %q; showing all rows.", raw)
	}
	return f, ""
}

// withDate appends the filter to path as a date query parameter.
func withDate(path string, f dashboard.Filter) string {
	if !f.Set {
		return path
	}
	return path + "?" + url.Values{"date": {f.String()}}.Encode()
}

func chartURL(section, chartID string, f dashboard.Filter) string {
	return withDate("/charts/"+url.PathEscape(section)+"/"+url.PathEscape(chartID)+".svg", f)
}

func exportURL(section string, f dashboard.Filter) string {
	return withDate("/sections/"+url.PathEscape(section)+".csv", f)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// render executes a named template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
