package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SourceLoads        *prometheus.CounterVec
	SourceLoadDuration *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	ChartRenders       *prometheus.CounterVec
	EndpointLatency    *prometheus.HistogramVec
	SuspiciousRequests prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SourceLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_source_loads_total",
			Help: "Source table loads by source and result",
		}, []string{"source", "result"}),
		SourceLoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insight_source_load_duration_seconds",
			Help:    "Duration of source table loads",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_cache_lookups_total",
			Help: "Table cache lookups by result (hit or miss)",
		}, []string{"result"}),
		ChartRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_chart_renders_total",
			Help: "Chart renders by kind and result",
		}, []string{"kind", "result"}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insight_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		SuspiciousRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "insight_suspicious_requests_total",
			Help: "Requests flagged as scans or injection attempts",
		}),
	}
}

func (m *Metrics) ObserveSourceLoad(source string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SourceLoads.WithLabelValues(source, result).Inc()
	m.SourceLoadDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrementChartRender(kind, result string) {
	m.ChartRenders.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncrementSuspiciousRequest() {
	m.SuspiciousRequests.Inc()
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
