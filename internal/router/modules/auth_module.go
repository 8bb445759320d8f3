package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

// AuthModule mounts the token auth endpoints under /auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  middleware.TokenResolver
	Redis   *redis.Client
	Allow   middleware.AllowFunc
}

func NewAuthModule(h *handlers.AuthHandler, tokens middleware.TokenResolver, rdb *redis.Client, allow middleware.AllowFunc) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens, Redis: rdb, Allow: allow}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// credential endpoints are limited per IP and route
	credLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), m.Allow)

	g := rg.Group("/auth")
	both(g.POST, "/signup", credLimiter, m.Handler.Signup)
	both(g.POST, "/login", credLimiter, m.Handler.Login)
	both(g.GET, "/csrf", m.Handler.CSRF)

	optional := g.Group("/", middleware.OptionalToken(m.Tokens))
	{
		both(optional.POST, "/logout", m.Handler.Logout)
		both(optional.GET, "/user", m.Handler.CurrentUser)
	}
}

// both registers path with and without a trailing slash. Browser clients
// post to the slash form, and gin's trailing-slash redirect would skip CORS.
func both(register func(string, ...gin.HandlerFunc) gin.IRoutes, path string, handlers ...gin.HandlerFunc) {
	register(path, handlers...)
	register(path+"/", handlers...)
}
