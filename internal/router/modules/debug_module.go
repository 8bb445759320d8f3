package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

type DebugModule struct {
	Redis *redis.Client
	Allow middleware.AllowFunc
}

func NewDebugModule(rdb *redis.Client, allow middleware.AllowFunc) *DebugModule {
	return &DebugModule{Redis: rdb, Allow: allow}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public metrics endpoint (expvar), rate-limited per IP
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), m.Allow)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
