package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	esinfra "github.com/oksasatya/go-task-manager/internal/infrastructure/elasticsearch"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/internal/interface/web"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

type Services struct {
	Auth  *application.AuthService
	Tasks *application.TaskService
}

// BuildServices wires the use cases from the container. Optional clients
// that are nil simply switch their feature off.
func BuildServices(c *container.Container) Services {
	var notifier application.SignupNotifier
	if c.Rabbit != nil {
		notifier = application.NewWelcomeNotifier(c.Rabbit, c.Config.AppName, c.Config.PublicURL+middleware.LoginPath)
	}
	auth := application.NewAuthService(c.Users, c.Tokens, c.Redis, c.Config.TokenCacheTTL, notifier, c.Logger)

	var index application.TaskIndex
	if c.ES != nil {
		idx := esinfra.NewTaskIndex(c.ES, c.Config.ESTasksIndex, c.Logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := idx.EnsureIndex(ctx); err != nil {
			helpers.LogError(c.Logger, "search index unavailable, using database search", err, nil)
		} else {
			index = idx
		}
	}
	tasks := application.NewTaskService(c.Tasks, index, c.Logger)
	return Services{Auth: auth, Tasks: tasks}
}

// InitModules initializes all application modules and registers them with the router registry.
// It must be called once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) error {
	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}
	r.Engine.HTMLRender = renderer

	svc := BuildServices(c)

	authHandler := handlers.NewAuthHandler(svc.Auth, c.Logger)
	taskHandler := handlers.NewTaskHandler(svc.Tasks, c.Logger)
	sessions := helpers.NewSessionRevocations(c.Redis)
	webHandler := handlers.NewWebHandler(svc.Auth, svc.Tasks, c.JWT, c.Cookies, sessions, c.Logger)

	var allow middleware.AllowFunc
	if c.Config.RateLimitBypassPrivate {
		allow = middleware.AllowPrivateIP()
	}

	r.Add(modules.NewAuthModule(authHandler, svc.Auth, c.Redis, allow))
	r.Add(modules.NewTaskModule(taskHandler, svc.Auth, c.Redis, allow))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis, allow))
	}
	r.AddRoot(modules.NewHealthModule(c.Ping, c.Config.DebugMetricsEnabled))
	r.AddRoot(modules.NewWebModule(webHandler, svc.Auth, c.JWT, sessions))

	r.Engine.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			response.Error(ctx, http.StatusNotFound, "Not found.", nil)
			return
		}
		webHandler.NotFound(ctx)
	})
	return nil
}
