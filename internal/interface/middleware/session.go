package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// LoginPath is where anonymous page requests are sent.
const LoginPath = "/login/"

// UserLoader loads an active user by id.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*entity.User, error)
}

// SessionChecker reports whether a session id was logged out.
type SessionChecker interface {
	Revoked(ctx context.Context, id string) (bool, error)
}

// SessionAuth guards server-rendered pages. Requests without a valid
// session cookie are redirected to the login page with a next parameter.
func SessionAuth(jwt *helpers.JWTManager, users UserLoader, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := SessionUser(c, jwt, users, sessions)
		if u == nil {
			target := LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

// OptionalSession loads the session user when present and never redirects.
func OptionalSession(jwt *helpers.JWTManager, users UserLoader, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := SessionUser(c, jwt, users, sessions); u != nil {
			c.Set(CtxUserKey, u)
		}
		c.Next()
	}
}

// SessionUser resolves the session cookie to an active user, or nil.
// sessions may be nil; a failing revocation check lets the session through.
func SessionUser(c *gin.Context, jwt *helpers.JWTManager, users UserLoader, sessions SessionChecker) *entity.User {
	token, err := c.Cookie(helpers.SessionCookie)
	if err != nil || token == "" {
		return nil
	}
	claims, err := jwt.ParseSessionToken(token)
	if err != nil {
		return nil
	}
	if sessions != nil {
		revoked, err := sessions.Revoked(c.Request.Context(), claims.ID)
		if err != nil {
			_ = c.Error(err)
		} else if revoked {
			return nil
		}
	}
	u, err := users.UserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil
	}
	return u
}
