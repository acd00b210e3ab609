package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardian-portal-api/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	cache   *service.CacheService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, cache *service.CacheService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness including cache availability. A degraded cache
// is reported but does not fail readiness; requests fall through to the
// registrar.
func (h *MetricsHandler) Ready(c *gin.Context) {
	cacheStatus := "disabled"
	if h.cache != nil && h.cache.Enabled() {
		cacheStatus = "ok"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": cacheStatus})
}
