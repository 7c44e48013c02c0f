package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"arbor/pkg/common"
	"arbor/pkg/core"
	"arbor/pkg/monitor"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Version    string
}

type Server struct {
	qs      *core.QueryService
	stats   *monitor.QueryStats
	logger  *slog.Logger
	version string
	echo    *echo.Echo
}

func NewServer(qs *core.QueryService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		qs:      qs,
		stats:   monitor.NewQueryStats(opts.Registerer),
		logger:  opts.Logger.With("system", "api"),
		version: opts.Version,
	}

	st := qs.Stats()
	for _, c := range st.Categories {
		s.stats.SetIndex(c.Category, c.Size, c.Depth)
	}
	s.stats.SetDropped(st.Dropped)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "arbor",
		Registerer: opts.Registerer,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/_health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/largest_tree/:category", s.handleLargest)
	e.GET("/smallest_tree/:category", s.handleSmallest)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	li, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, li)
}

func (s *Server) Serve(ctx context.Context, li net.Listener) error {
	srv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(li)
	}()
	s.logger.Info("server listening", "addr", li.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type HealthStatus struct {
	Status  string             `json:"status"`
	Version string             `json:"version,omitempty"`
	Served  *uint64            `json:"served,omitempty"`
	Catalog *core.CatalogStats `json:"catalog,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	h := HealthStatus{
		Status:  "ok",
		Version: s.version,
	}
	if c.QueryParam("stats") == "true" {
		served := s.stats.Served()
		h.Served = &served
		st := s.qs.Stats()
		h.Catalog = &st
	}
	return c.JSON(http.StatusOK, h)
}

func (s *Server) handleLargest(c echo.Context) error {
	return s.lookup(c, core.Maximum)
}

func (s *Server) handleSmallest(c echo.Context) error {
	return s.lookup(c, core.Minimum)
}

func (s *Server) lookup(c echo.Context, kind core.QueryKind) error {
	category, ok := common.CategoryFromSlug(c.Param("category"))
	if !ok {
		s.stats.RecordUnknownCategory()
		return echo.NewHTTPError(http.StatusNotFound, "unknown category")
	}

	rec, err := s.qs.Lookup(category, kind)
	if err != nil {
		s.logger.Error("lookup failed", "category", category, "kind", kind, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}

	s.stats.RecordLookup(category, kind.String())
	return c.JSON(http.StatusOK, rec)
}
