package api

import (
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/eventlake/internal/metrics"
)

// SetupRoute binds API endpoints to router group such as /api/v1
func SetupRoute(r *gin.RouterGroup, h *Handler) {
	r.POST("/events", handle(h.postEvents))
	r.GET("/health", handle(h.getHealth))
}

// NewRouter creates gin engine having /api/v1 endpoints and /metrics.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	SetupRoute(v1, h)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
