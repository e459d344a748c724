package http

import (
	"insight/internal/dashboard"
)

type pageView struct {
	Title       string
	Caption     string
	FilterLabel string
	Date        string
	Notice      string
	Sections    []sectionView
}

type sectionView struct {
	dashboard.Section
	ExportURL string
	Charts    []chartView
	NoData    []chartView
}

type chartView struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

func placeholders(refs []dashboard.ChartRef) []chartView {
	out := make([]chartView, 0, len(refs))
	for _, c := range refs {
		out = append(out, chartView{ID: c.ID, Kind: string(c.Kind), Title: c.Title})
	}
	return out
}

func newPageView(p dashboard.Page, notice string) pageView {
	v := pageView{
		Title:       p.Title,
		Caption:     p.Caption,
		FilterLabel: p.FilterLabel,
		Date:        p.Filter.String(),
		Notice:      notice,
	}
	for _, sec := range p.Sections {
		sv := sectionView{Section: sec, NoData: placeholders(sec.NoData)}
		if sec.Status == dashboard.StatusOK {
			sv.ExportURL = exportURL(sec.Name, p.Filter)
		}
		for _, c := range sec.Charts {
			sv.Charts = append(sv.Charts, chartView{
				ID:    c.ID,
				Kind:  string(c.Kind),
				Title: c.Title,
				URL:   chartURL(sec.Name, c.ID, p.Filter),
			})
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

// sectionJSON is the /api/sections payload.
type sectionJSON struct {
	Name      string                  `json:"name"`
	Title     string                  `json:"title"`
	Status    dashboard.Status        `json:"status"`
	Message   string                  `json:"message,omitempty"`
	Table     string                  `json:"table,omitempty"`
	Date      string                  `json:"date,omitempty"`
	Filtered  bool                    `json:"filtered"`
	TotalRows int                     `json:"total_rows"`
	Columns   []string                `json:"columns"`
	Rows      []map[string]any        `json:"rows"`
	Metrics   []dashboard.MetricValue `json:"metrics"`
	Charts    []chartView             `json:"charts"`
	NoData    []chartView             `json:"no_data"`
}

func newSectionJSON(sec dashboard.Section, f dashboard.Filter) sectionJSON {
	out := sectionJSON{
		Name:      sec.Name,
		Title:     sec.Title,
		Status:    sec.Status,
		Message:   sec.Message,
		Table:     sec.Table.Name,
		Date:      f.String(),
		Filtered:  sec.Filtered,
		TotalRows: sec.TotalRows,
		Columns:   sec.Table.Columns,
		Rows:      sec.Table.Records(),
		Metrics:   sec.Metrics,
		Charts:    []chartView{},
		NoData:    placeholders(sec.NoData),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Metrics == nil {
		out.Metrics = []dashboard.MetricValue{}
	}
	for _, c := range sec.Charts {
		out.Charts = append(out.Charts, chartView{ID: c.ID, Kind: string(c.Kind), Title: c.Title, URL: chartURL(sec.Name, c.ID, f)})
	}
	return out
}
