package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sadikovi/pulsar/metrics"
	"github.com/sadikovi/pulsar/utils"
)

// Server hosts the exploration API.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *utils.Logger
}

// NewServer builds the router and mounts every route.
func NewServer(addr string, h *Handlers, logger *utils.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/datasets", h.ListDatasets)
		v1.POST("/sessions", h.CreateSession)

		s := v1.Group("/sessions/:id")
		{
			s.GET("/graph", h.Graph)
			s.POST("/zoom-in", h.ZoomIn)
			s.POST("/zoom-out", h.ZoomOut)
			s.POST("/drilldown", h.Drilldown)
			s.POST("/rollup", h.Rollup)
			s.POST("/select", h.Select)
			s.DELETE("/select", h.Deselect)
			s.GET("/stack", h.Stack)
			s.POST("/reset", h.Reset)
			s.PATCH("", h.Reprice)
			s.DELETE("", h.DeleteSession)
		}
	}

	return &Server{
		router: r,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("[api] Listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestMetrics records the counter and latency for every matched route.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Inc()
		metrics.RequestDurationMs.
			WithLabelValues(route).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}
