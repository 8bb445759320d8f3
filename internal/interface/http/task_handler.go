package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/response"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

type taskRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description *string          `json:"description"`
	Completed   *bool            `json:"completed"`
	Priority    *entity.Priority `json:"priority"`
	Category    *entity.Category `json:"category"`
}

func (r taskRequest) input() application.TaskInput {
	return application.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Category:    r.Category,
		Completed:   r.Completed,
	}
}

// owner returns the authenticated user; TokenAuth guarantees it on task routes.
func owner(c *gin.Context) *entity.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// taskID parses the :id route param. Anything but a positive integer is a 404.
func taskID(c *gin.Context) (int64, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, msgNotFound, nil)
		return 0, false
	}
	return id, true
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}

func (h *TaskHandler) List(c *gin.Context) {
	u := owner(c)
	tasks, err := h.Svc.List(c.Request.Context(), u.ID, repository.TaskFilter{
		Status: repository.TaskStatus(c.Query("status")),
		Search: c.Query("search"),
	})
	if err != nil {
		writeError(c, h.Logger, err, "Error listing tasks")
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks, u))
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid task", validation.ToDetails(err))
		return
	}
	u := owner(c)
	t, err := h.Svc.Create(c.Request.Context(), u.ID, req.input())
	if err != nil {
		writeError(c, h.Logger, err, "Error creating task")
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(t, u))
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	u := owner(c)
	t, err := h.Svc.Get(c.Request.Context(), u.ID, id)
	if err != nil {
		writeError(c, h.Logger, err, "Error loading task")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t, u))
}

// Replace handles PUT: absent optional fields are cleared.
func (h *TaskHandler) Replace(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid task", validation.ToDetails(err))
		return
	}
	u := owner(c)
	t, err := h.Svc.Replace(c.Request.Context(), u.ID, id, req.input())
	if err != nil {
		writeError(c, h.Logger, err, "Error updating task")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t, u))
}

// Patch handles PATCH: only keys present in the body change.
func (h *TaskHandler) Patch(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var patch application.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "Invalid task", validation.ToDetails(err))
		return
	}
	u := owner(c)
	t, err := h.Svc.Update(c.Request.Context(), u.ID, id, patch)
	if err != nil {
		writeError(c, h.Logger, err, "Error updating task")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t, u))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), owner(c).ID, id); err != nil {
		writeError(c, h.Logger, err, "Error deleting task")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Toggle(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	u := owner(c)
	t, err := h.Svc.Toggle(c.Request.Context(), u.ID, id)
	if err != nil {
		writeError(c, h.Logger, err, "Error toggling task")
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t, u))
}

func (h *TaskHandler) Suggestions(c *gin.Context) {
	s, err := h.Svc.Suggestions(c.Request.Context(), owner(c).ID)
	if err != nil {
		writeError(c, h.Logger, err, "Error building suggestions")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *TaskHandler) Search(c *gin.Context) {
	u := owner(c)
	tasks, err := h.Svc.Search(c.Request.Context(), u.ID, c.Query("q"))
	if err != nil {
		writeError(c, h.Logger, err, "Error searching tasks")
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks, u))
}
