// Package dashboard assembles page sections from source tables: the table
// view, summary metrics and the charts whose columns are present.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"insight/internal/cache"
	"insight/internal/chart"
	"insight/internal/core"
	"insight/internal/layout"
	"insight/internal/log"
	"insight/internal/metrics"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrUnknownChart   = errors.New("unknown chart")
)

// LoadErrorMessage is shown in place of a section whose source failed.
const LoadErrorMessage = "Error loading data. Showing an empty table."

// Loader reads one source table.
type Loader interface {
	Name() string
	Load(ctx context.Context) (core.Table, error)
	Ping(ctx context.Context) error
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusError       Status = "error"
	StatusUnavailable Status = "unavailable"
)

type Page struct {
	Title       string
	Caption     string
	FilterLabel string
	Filter      Filter
	Sections    []Section
}

type Section struct {
	Name      string
	Title     string
	Source    string
	Status    Status
	Message   string
	Table     core.Table
	TotalRows int  // rows before the date filter
	Filtered  bool // the date filter was applied
	Metrics   []MetricValue
	Charts    []ChartRef
	// NoData holds charts whose columns exist but whose aggregate over the
	// shown rows has nothing to draw.
	NoData []ChartRef
}

// HasError reports whether the section failed to load.
func (s Section) HasError() bool { return s.Status == StatusError }

type MetricValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ChartRef struct {
	ID    string
	Kind  layout.ChartKind
	Title string
}

// ChartData is the aggregate behind one chart.
type ChartData struct {
	Chart   layout.Chart
	Groups  []core.Group  // bar and pie
	Buckets []core.Bucket // line
}

type Options struct {
	Layout  *layout.Layout
	Sources []Loader
	Memo    *cache.Memo[core.Table]
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

type Service struct {
	layout  *layout.Layout
	sources map[string]Loader
	order   []string
	memo    *cache.Memo[core.Table]
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewService(opts Options) *Service {
	l := opts.Layout
	if l == nil {
		l = layout.Default()
	}
	memo := opts.Memo
	if memo == nil {
		memo = cache.NewMemo[core.Table](nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Service{
		layout:  l,
		sources: make(map[string]Loader, len(opts.Sources)),
		memo:    memo,
		metrics: opts.Metrics,
		logger:  logger.WithComponent(log.ComponentDashboard),
	}
	for _, src := range opts.Sources {
		s.sources[src.Name()] = src
		s.order = append(s.order, src.Name())
	}
	return s
}

// Layout returns the page layout the service renders.
func (s *Service) Layout() *layout.Layout { return s.layout }

// Page builds every section. A failing source only affects its own sections.
func (s *Service) Page(ctx context.Context, f Filter) Page {
	page := Page{
		Title:       s.layout.Title,
		Caption:     s.layout.Caption,
		FilterLabel: s.layout.Filter.Label,
		Filter:      f,
	}
	for _, sec := range s.layout.Sections {
		page.Sections = append(page.Sections, s.section(ctx, sec, f))
	}
	return page
}

func (s *Service) section(ctx context.Context, sec layout.Section, f Filter) Section {
	out := Section{Name: sec.Name, Title: sec.Title, Source: sec.Source}

	table, err := s.load(ctx, sec.Source)
	switch {
	case errors.Is(err, errNotConfigured):
		out.Status = StatusUnavailable
		out.Message = sec.EmptyMessage
		return out
	case err != nil:
		s.logger.ErrorContext(ctx, "Section data failed to load",
			log.FieldSection, sec.Name,
			log.FieldSource, sec.Source,
			log.FieldError, err)
		out.Status = StatusError
		out.Message = LoadErrorMessage
		return out
	case table.Empty():
		out.Status = StatusEmpty
		out.Message = sec.EmptyMessage
		out.Table = table
		return out
	}

	out.Status = StatusOK
	out.TotalRows = len(table.Rows)
	out.Table, out.Filtered = s.applyFilter(ctx, sec, table, f)
	out.Metrics = computeMetrics(out.Table, sec.Metrics)
	if len(out.Table.Rows) > 0 {
		for _, c := range sec.Charts {
			if !out.Table.HasColumns(c.Columns()...) {
				continue
			}
			ref := ChartRef{ID: c.ID, Kind: c.Kind, Title: c.Title}
			if data, err := aggregate(out.Table, c); err == nil && data.Drawable() {
				out.Charts = append(out.Charts, ref)
			} else {
				out.NoData = append(out.NoData, ref)
			}
		}
	}
	return out
}

func (s *Service) applyFilter(ctx context.Context, sec layout.Section, t core.Table, f Filter) (core.Table, bool) {
	if !f.Set || !s.layout.Filter.Apply || sec.DateColumn == "" || !t.HasColumns(sec.DateColumn) {
		return t, false
	}
	filtered, err := t.FilterDay(sec.DateColumn, f.Day)
	if err != nil {
		return t, false
	}
	s.logger.DebugContext(ctx, "Date filter applied",
		log.FieldSection, sec.Name,
		log.FieldDate, f.String(),
		log.FieldRows, len(filtered.Rows))
	return filtered, true
}

func computeMetrics(t core.Table, defs []layout.Metric) []MetricValue {
	var out []MetricValue
	for _, m := range defs {
		if !t.HasColumns(m.Column) {
			continue
		}
		var value string
		switch m.Op {
		case layout.OpSum:
			sum, _ := core.Sum(t, m.Column)
			if m.Format == layout.FormatInt {
				value = core.FormatCount(int(sum.IntPart()))
			} else {
				value = core.FormatAmount(sum)
			}
		case layout.OpCount:
			n, _ := core.Count(t, m.Column)
			value = core.FormatCount(n)
		case layout.OpCountDistinct:
			n, _ := core.CountDistinct(t, m.Column)
			value = core.FormatCount(n)
		}
		out = append(out, MetricValue{Label: m.Label, Value: value})
	}
	return out
}

var errNotConfigured = errors.New("source not configured")

func (s *Service) load(ctx context.Context, name string) (core.Table, error) {
	src, ok := s.sources[name]
	if !ok {
		return core.Table{}, errNotConfigured
	}
	return s.memo.Do(ctx, name, func(ctx context.Context) (core.Table, error) {
		start := time.Now()
		t, err := src.Load(ctx)
		if s.metrics != nil {
			s.metrics.ObserveSourceLoad(name, start, err)
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("load %s: %w", name, err)
		}
		s.logger.InfoContext(ctx, "Source loaded",
			log.FieldSource, name,
			log.FieldTable, t.Name,
			log.FieldRows, len(t.Rows),
			log.FieldDuration, time.Since(start).Milliseconds())
		return t, nil
	})
}

func (s *Service) lookup(sectionName, chartID string) (layout.Section, layout.Chart, error) {
	sec, ok := s.layout.Section(sectionName)
	if !ok {
		return layout.Section{}, layout.Chart{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionName)
	}
	c, ok := sec.Chart(chartID)
	if !ok {
		return layout.Section{}, layout.Chart{}, fmt.Errorf("%w: %s/%s", ErrUnknownChart, sectionName, chartID)
	}
	return sec, c, nil
}

// Table returns a section's rows after the date filter.
func (s *Service) Table(ctx context.Context, sectionName string, f Filter) (core.Table, error) {
	sec, ok := s.layout.Section(sectionName)
	if !ok {
		return core.Table{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionName)
	}
	t, err := s.load(ctx, sec.Source)
	if errors.Is(err, errNotConfigured) {
		return core.Table{}, nil
	}
	if err != nil {
		return core.Table{}, err
	}
	t, _ = s.applyFilter(ctx, sec, t, f)
	return t, nil
}

// Section builds a single section as the page would show it.
func (s *Service) Section(ctx context.Context, sectionName string, f Filter) (Section, error) {
	sec, ok := s.layout.Section(sectionName)
	if !ok {
		return Section{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionName)
	}
	return s.section(ctx, sec, f), nil
}

// Chart computes the aggregate for one chart over the filtered rows. A chart
// whose columns are missing from the table is reported as unknown.
func (s *Service) Chart(ctx context.Context, sectionName, chartID string, f Filter) (ChartData, error) {
	sec, c, err := s.lookup(sectionName, chartID)
	if err != nil {
		return ChartData{}, err
	}
	t, err := s.Table(ctx, sectionName, f)
	if err != nil {
		return ChartData{}, err
	}
	if !t.HasColumns(c.Columns()...) {
		return ChartData{}, fmt.Errorf("%w: %s/%s needs columns %v", ErrUnknownChart, sec.Name, c.ID, c.Columns())
	}
	return aggregate(t, c)
}

func aggregate(t core.Table, c layout.Chart) (ChartData, error) {
	var err error
	data := ChartData{Chart: c}
	switch c.Kind {
	case layout.KindLine:
		data.Buckets, err = core.MonthlySum(t, c.Category, c.Value)
	case layout.KindPie:
		data.Groups, err = core.GroupSum(t, c.Category, c.Value)
		sort.SliceStable(data.Groups, func(i, j int) bool {
			return data.Groups[i].Total.GreaterThan(data.Groups[j].Total)
		})
	default:
		data.Groups, err = core.GroupSum(t, c.Category, c.Value)
	}
	if err != nil {
		return ChartData{}, err
	}
	return data, nil
}

// Drawable applies the renderer's no-data rule for the chart's kind.
func (d ChartData) Drawable() bool {
	switch d.Chart.Kind {
	case layout.KindLine:
		return chart.LineDrawable(d.Buckets)
	case layout.KindPie:
		return chart.PieDrawable(d.Groups)
	default:
		return chart.BarDrawable(d.Groups)
	}
}

// RenderChart writes one chart as SVG.
func (s *Service) RenderChart(ctx context.Context, w io.Writer, sectionName, chartID string, f Filter) error {
	data, err := s.Chart(ctx, sectionName, chartID, f)
	if err != nil {
		return err
	}
	c := data.Chart
	labels := chart.Labels{Title: c.Title, X: c.Label(c.Category), Y: c.Label(c.Value)}
	switch c.Kind {
	case layout.KindLine:
		err = chart.Line(w, labels, data.Buckets)
	case layout.KindPie:
		err = chart.Pie(w, labels, data.Groups)
	default:
		err = chart.Bar(w, labels, data.Groups)
	}

	result := "ok"
	switch {
	case errors.Is(err, chart.ErrNoData):
		result = "no_data"
	case err != nil:
		result = "error"
		s.logger.ErrorContext(ctx, "Chart render failed",
			log.FieldSection, sectionName,
			log.FieldChart, chartID,
			log.FieldError, err)
	}
	if s.metrics != nil {
		s.metrics.IncrementChartRender(string(c.Kind), result)
	}
	return err
}

// Refresh drops every cached table so the next request reloads from the sources.
func (s *Service) Refresh(ctx context.Context) {
	s.memo.Clear(ctx)
	s.logger.InfoContext(ctx, "Table cache cleared", log.FieldOperation, log.OpRefresh)
}

// Check pings every configured source. The map holds one entry per source;
// a nil error means reachable.
func (s *Service) Check(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.order))
	for _, name := range s.order {
		out[name] = s.sources[name].Ping(ctx)
	}
	return out
}
