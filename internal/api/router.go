package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"batfit/internal/logging"
	"batfit/internal/metrics"
	"batfit/internal/service"
	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// LoadCacheRequest is the API request for a cache load
type LoadCacheRequest struct {
	Vectors   []float32 `json:"vectors"`
	ChromoLen int       `json:"chromo_len"`
	Dim       int       `json:"dim"`
}

// EvaluateRequest is the API request for a batch. Chromosomes holds packed
// chunks; Bits may be given instead, one big-endian bit string per chromosome.
type EvaluateRequest struct {
	Chromosomes []uint32 `json:"chromosomes"`
	Bits        []string `json:"bits,omitempty"`
	ChromoLen   int      `json:"chromo_len"`
	Dim         int      `json:"dim"`
	NumBats     int      `json:"num_bats"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type handlers struct {
	svc *service.Service
	log *logging.Logger
}

// NewRouter builds the HTTP API. The Prometheus exposition is served at the
// root /metrics when m is non-nil.
func NewRouter(svc *service.Service, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Default().Error("%s %s: panic recovered: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}))
	router.Use(requestLogger(logging.Default()))

	h := &handlers{svc: svc, log: logging.Default()}

	api := router.Group("/api/v1")
	{
		api.POST("/cache", h.handleLoadCache)
		api.GET("/cache", h.handleCacheInfo)
		api.POST("/evaluate", h.handleEvaluate)
		api.GET("/health", h.handleHealth)
		api.GET("/metrics", h.handleMetrics)
		api.GET("/methods", h.handleMethods)
	}

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return router
}

func requestLogger(l *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// statusFor maps the fitness error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrConfiguration), errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSequencing):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Code: core.Code(err)})
}

func (h *handlers) handleLoadCache(c *gin.Context) {
	var req LoadCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: core.ErrCodeInvalidInput})
		return
	}

	res, err := h.svc.LoadCache(req.Vectors, req.ChromoLen, req.Dim)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: core.ErrCodeInvalidInput})
		return
	}

	chunks := req.Chromosomes
	if len(req.Bits) > 0 {
		packed, err := chromosome.PackStrings(req.Bits, req.ChromoLen)
		if err != nil {
			abortWithError(c, err)
			return
		}
		chunks = packed
	}

	res, err := h.svc.Evaluate(c.Request.Context(), chunks, req.ChromoLen, req.Dim, req.NumBats)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) handleCacheInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CacheInfo())
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

func (h *handlers) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handlers) handleMethods(c *gin.Context) {
	report := h.svc.Report()
	if report == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no detection report"})
		return
	}
	c.JSON(http.StatusOK, report)
}
