package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"insight/internal/chart"
	"insight/internal/dashboard"
	"insight/internal/log"
)

// handleDashboard renders the full page. A failing source only marks its own
// sections, so this always answers 200.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	f, notice := filterFromRequest(r)
	page := s.dash.Page(ctx, f)
	s.render(w, r, "dashboard.html", newPageView(page, notice))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	section, chartID := chi.URLParam(r, "section"), chi.URLParam(r, "chart")
	f, _ := filterFromRequest(r)

	var buf bytes.Buffer
	err := s.dash.RenderChart(ctx, &buf, section, chartID, f)
	switch {
	case err == nil:
	case errors.Is(err, dashboard.ErrUnknownSection), errors.Is(err, dashboard.ErrUnknownChart):
		http.NotFound(w, r)
		return
	case errors.Is(err, chart.ErrNoData):
		http.Error(w, "No data to chart for this selection.", http.StatusNotFound)
		return
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Chart unavailable",
			log.FieldSection, section, log.FieldChart, chartID, log.FieldError, err)
		http.Error(w, "Chart data could not be loaded.", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", chart.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=60")
	_, _ = w.Write(buf.Bytes())
}

// handleExport streams the section's filtered rows as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	section := chi.URLParam(r, "section")
	f, _ := filterFromRequest(r)

	t, err := s.dash.Table(ctx, section, f)
	if errors.Is(err, dashboard.ErrUnknownSection) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Export failed",
			log.FieldSection, section, log.FieldOperation, log.OpExport, log.FieldError, err)
		http.Error(w, "Section data could not be loaded.", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(t.Columns)
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = row[i].String()
			}
		}
		_ = cw.Write(record)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	name := section
	if f.Set {
		name += "-" + f.String()
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSectionJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	f, _ := filterFromRequest(r)
	sec, err := s.dash.Section(ctx, chi.URLParam(r, "section"), f)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "unknown section")
		return
	}
	writeJSON(w, http.StatusOK, newSectionJSON(sec, f))
}

// handleCacheClear drops cached tables and sends the browser back to the page.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.dash.Refresh(r.Context())

	target := "/"
	if f, err := dashboard.ParseFilter(r.FormValue("date")); err == nil {
		target = withDate("/", f)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings every source; any unreachable source makes the instance
// not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	status := http.StatusOK
	sources := make(map[string]string)
	for name, err := range s.dash.Check(ctx) {
		if err != nil {
			status = http.StatusServiceUnavailable
			sources[name] = "error: " + strings.TrimSpace(err.Error())
			log.FromContext(ctx).WarnContext(ctx, "Source not ready",
				log.FieldSource, name, log.FieldOperation, log.OpPing, log.FieldError, err)
			continue
		}
		sources[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "sources": sources})
}
