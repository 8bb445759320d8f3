package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

const (
	CtxUserKey  = "user"
	CtxTokenKey = "auth_token"
)

// TokenResolver maps an API token to its owner.
type TokenResolver interface {
	WhoAmI(ctx context.Context, key string) (*entity.User, error)
}

// TokenFromHeader extracts the key from "Authorization: Token <key>" or "Bearer <key>".
func TokenFromHeader(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, key, ok := strings.Cut(h, " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(key)
}

// CurrentUser returns the user stored by TokenAuth, OptionalToken or SessionAuth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

// TokenAuth rejects requests without a valid API token.
// It sets the user and the raw token in the Gin context on success.
func TokenAuth(auth TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := TokenFromHeader(c)
		if key == "" {
			response.Error(c, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
			return
		}
		u, err := auth.WhoAmI(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, application.ErrUnauthenticated) {
				response.Error(c, http.StatusUnauthorized, "Invalid token.", nil)
				return
			}
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "Internal server error", nil)
			return
		}
		c.Set(CtxUserKey, u)
		c.Set(CtxTokenKey, key)
		c.Next()
	}
}

// OptionalToken resolves a token when one is sent and never aborts.
func OptionalToken(auth TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := TokenFromHeader(c); key != "" {
			c.Set(CtxTokenKey, key)
			if u, err := auth.WhoAmI(c.Request.Context(), key); err == nil {
				c.Set(CtxUserKey, u)
			} else if !errors.Is(err, application.ErrUnauthenticated) {
				_ = c.Error(err)
			}
		}
		c.Next()
	}
}
