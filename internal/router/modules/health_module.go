package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthModule serves liveness and, when enabled, Prometheus metrics at the root.
type HealthModule struct {
	Ping    func(ctx context.Context) error
	Metrics bool
}

func NewHealthModule(ping func(ctx context.Context) error, metrics bool) *HealthModule {
	return &HealthModule{Ping: ping, Metrics: metrics}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.health)
	if m.Metrics {
		rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (m *HealthModule) health(c *gin.Context) {
	if m.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := m.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
