package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// WebModule mounts the server-rendered pages. Task pages need a session cookie.
type WebModule struct {
	Handler *handlers.WebHandler
	Users    middleware.UserLoader
	JWT      *helpers.JWTManager
	Sessions middleware.SessionChecker
}

func NewWebModule(h *handlers.WebHandler, users middleware.UserLoader, jwt *helpers.JWTManager, sessions middleware.SessionChecker) *WebModule {
	return &WebModule{Handler: h, Users: users, JWT: jwt, Sessions: sessions}
}

func (m *WebModule) Register(rg *gin.RouterGroup) {
	public := rg.Group("/", middleware.OptionalSession(m.JWT, m.Users, m.Sessions))
	{
		public.GET("/login/", m.Handler.LoginForm)
		public.POST("/login/", m.Handler.Login)
		public.GET("/signup/", m.Handler.SignupForm)
		public.POST("/signup/", m.Handler.Signup)
		public.POST("/logout/", m.Handler.Logout)
	}

	pages := rg.Group("/", middleware.SessionAuth(m.JWT, m.Users, m.Sessions))
	{
		pages.GET("/", m.Handler.List)
		pages.GET("/create/", m.Handler.CreateForm)
		pages.POST("/create/", m.Handler.Create)
		pages.GET("/:id/update/", m.Handler.UpdateForm)
		pages.POST("/:id/update/", m.Handler.Update)
		pages.GET("/:id/delete/", m.Handler.DeleteConfirm)
		pages.POST("/:id/delete/", m.Handler.Delete)
		pages.POST("/:id/toggle/", m.Handler.Toggle)
	}
}
