package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

const msgNotFound = "Not found."

// writeError maps service errors to HTTP responses. Unexpected errors are
// logged with the request id and answered with fallback only.
func writeError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error(c, http.StatusBadRequest, ve.Message, ve.Fields)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, application.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
	case errors.Is(err, application.ErrTaskNotFound):
		response.Error(c, http.StatusNotFound, msgNotFound, nil)
	default:
		_ = c.Error(err)
		helpers.LogError(logger, fallback, err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.Request.URL.Path,
		})
		response.Error(c, http.StatusInternalServerError, fallback, nil)
	}
}
