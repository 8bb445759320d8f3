package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

// TaskModule mounts the task resource. Every route requires an API token.
type TaskModule struct {
	Handler *handlers.TaskHandler
	Tokens  middleware.TokenResolver
	Redis   *redis.Client
	Allow   middleware.AllowFunc
}

func NewTaskModule(h *handlers.TaskHandler, tokens middleware.TokenResolver, rdb *redis.Client, allow middleware.AllowFunc) *TaskModule {
	return &TaskModule{Handler: h, Tokens: tokens, Redis: rdb, Allow: allow}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/tasks")
	g.Use(
		middleware.TokenAuth(m.Tokens),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUser(), m.Allow),
	)
	{
		g.GET("/", m.Handler.List)
		g.POST("/", m.Handler.Create)
		g.GET("/suggestions/", m.Handler.Suggestions)
		g.GET("/search/", m.Handler.Search)
		g.GET("/:id/", m.Handler.Get)
		g.PUT("/:id/", m.Handler.Replace)
		g.PATCH("/:id/", m.Handler.Patch)
		g.DELETE("/:id/", m.Handler.Delete)
		g.PATCH("/:id/toggle/", m.Handler.Toggle)
	}
}
