// Package http provides HTTP server and handler implementations.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"insight/internal/dashboard"
	"insight/internal/log"
	"insight/internal/metrics"
	"insight/internal/middleware/ratelimit"
	"insight/internal/middleware/security"
	"insight/internal/middleware/trace"
	appweb "insight/web"
)

// requestTimeout bounds the source work done for one request.
const requestTimeout = 7 * time.Second

// Deps are the collaborators the server needs.
type Deps struct {
	Dashboard *dashboard.Service
	Metrics   *metrics.Metrics // optional
	Logger    *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	dash      *dashboard.Service
	metrics   *metrics.Metrics
	logger    *log.Logger
	detector  *security.Detector
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires the routes, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		templates: t,
		dash:      deps.Dashboard,
		metrics:   deps.Metrics,
		logger:    logger.WithComponent(log.ComponentHTTP),
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	if s.metrics != nil {
		s.detector.OnSuspicious(s.metrics.IncrementSuspiciousRequest)
	}
	handler, err := s.routes()
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	s.Handler = handler
	return s, nil
}

func (s *Server) routes() (http.Handler, error) {
	var observe func(string, time.Duration)
	if s.metrics != nil {
		observe = func(route string, d time.Duration) {
			s.metrics.ObserveEndpointLatency(route, d.Seconds())
		}
	}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(s.logger, s.detector.ClientIP, observe).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.CacheControl("public, max-age=3600")).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleDashboard)
	r.Get("/charts/{section}/{chart}.svg", s.handleChart)
	r.Get("/sections/{section}.csv", s.handleExport)
	r.Get("/api/sections/{section}", s.handleSectionJSON)
	r.With(s.limiter.Middleware(s.detector.ClientIP)).Post("/cache/clear", s.handleCacheClear)

	return r, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
