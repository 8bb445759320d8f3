package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/internal/interface/web"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

// WebHandler serves the server-rendered pages over the same services as the API.
type WebHandler struct {
	Auth    *application.AuthService
	Tasks   *application.TaskService
	JWT     *helpers.JWTManager
	Cookies  *helpers.Manager
	Sessions *helpers.SessionRevocations
	Logger   *logrus.Logger
}

func NewWebHandler(auth *application.AuthService, tasks *application.TaskService, jwt *helpers.JWTManager, cookies *helpers.Manager, sessions *helpers.SessionRevocations, logger *logrus.Logger) *WebHandler {
	return &WebHandler{Auth: auth, Tasks: tasks, JWT: jwt, Cookies: cookies, Sessions: sessions, Logger: logger}
}

type taskForm struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description"`
	Priority    string `form:"priority"`
	Category    string `form:"category"`
	Completed   bool   `form:"completed"`
}

func formFromTask(t *entity.Task) taskForm {
	f := taskForm{Title: t.Title, Completed: t.Completed}
	if t.Description != nil {
		f.Description = *t.Description
	}
	if t.Priority != nil {
		f.Priority = string(*t.Priority)
	}
	if t.Category != nil {
		f.Category = string(*t.Category)
	}
	return f
}

func (f taskForm) input() application.TaskInput {
	priority := entity.Priority(f.Priority)
	category := entity.Category(f.Category)
	completed := f.Completed
	return application.TaskInput{
		Title:       f.Title,
		Description: &f.Description,
		Priority:    &priority,
		Category:    &category,
		Completed:   &completed,
	}
}

func (h *WebHandler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u, ok := middleware.CurrentUser(c); ok {
		data["User"] = u
	}
	c.HTML(status, page, data)
}

// NotFound renders the 404 page, showing the session user when there is one.
func (h *WebHandler) NotFound(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		if u := middleware.SessionUser(c, h.JWT, h.Auth, h.Sessions); u != nil {
			c.Set(middleware.CtxUserKey, u)
		}
	}
	h.render(c, http.StatusNotFound, web.PageNotFound, nil)
}

// fail renders 404 for missing tasks and logs anything else as a 500.
func (h *WebHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, application.ErrTaskNotFound) {
		h.NotFound(c)
		return
	}
	_ = c.Error(err)
	helpers.LogError(h.Logger, "page request failed", err, logrus.Fields{"request_id": c.GetString("request_id"), "path": c.Request.URL.Path})
	c.String(http.StatusInternalServerError, "Internal server error")
}

func (h *WebHandler) pageTaskID(c *gin.Context) (int64, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.NotFound(c)
		return 0, false
	}
	return id, true
}

func (h *WebHandler) List(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	ctx := c.Request.Context()
	status := repository.TaskStatus(c.DefaultQuery("status", string(repository.TaskStatusAll)))
	search := c.Query("search")

	all, err := h.Tasks.List(ctx, u.ID, repository.TaskFilter{Search: search})
	if err != nil {
		h.fail(c, err)
		return
	}
	completed := 0
	for _, t := range all {
		if t.Completed {
			completed++
		}
	}
	shown := all
	if status != repository.TaskStatusAll {
		shown, err = h.Tasks.List(ctx, u.ID, repository.TaskFilter{Status: status, Search: search})
		if err != nil {
			// unknown status: fall back to everything
			status, shown = repository.TaskStatusAll, all
		}
	}
	suggestions, err := h.Tasks.Suggestions(ctx, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, web.PageList, gin.H{
		"Tasks":       shown,
		"Status":      string(status),
		"Search":      search,
		"Completed":   completed,
		"Pending":     len(all) - completed,
		"Suggestions": suggestions,
	})
}

func (h *WebHandler) CreateForm(c *gin.Context) {
	h.render(c, http.StatusOK, web.PageForm, gin.H{"Form": taskForm{}})
}

func (h *WebHandler) Create(c *gin.Context) {
	var f taskForm
	if err := c.ShouldBind(&f); err != nil {
		h.render(c, http.StatusBadRequest, web.PageForm, gin.H{"Form": f, "Errors": validation.ToDetails(err)})
		return
	}
	u, _ := middleware.CurrentUser(c)
	if _, err := h.Tasks.Create(c.Request.Context(), u.ID, f.input()); err != nil {
		h.formError(c, err, f, 0)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *WebHandler) UpdateForm(c *gin.Context) {
	id, ok := h.pageTaskID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)
	t, err := h.Tasks.Get(c.Request.Context(), u.ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, web.PageForm, gin.H{"Form": formFromTask(t), "TaskID": t.ID})
}

func (h *WebHandler) Update(c *gin.Context) {
	id, ok := h.pageTaskID(c)
	if !ok {
		return
	}
	var f taskForm
	if err := c.ShouldBind(&f); err != nil {
		h.render(c, http.StatusBadRequest, web.PageForm, gin.H{"Form": f, "TaskID": id, "Errors": validation.ToDetails(err)})
		return
	}
	u, _ := middleware.CurrentUser(c)
	if _, err := h.Tasks.Replace(c.Request.Context(), u.ID, id, f.input()); err != nil {
		h.formError(c, err, f, id)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *WebHandler) formError(c *gin.Context, err error, f taskForm, id int64) {
	var ve *application.ValidationError
	if !errors.As(err, &ve) {
		h.fail(c, err)
		return
	}
	data := gin.H{"Form": f, "Message": ve.Message, "Errors": ve.Fields}
	if id != 0 {
		data["TaskID"] = id
	}
	h.render(c, http.StatusBadRequest, web.PageForm, data)
}

func (h *WebHandler) DeleteConfirm(c *gin.Context) {
	id, ok := h.pageTaskID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)
	t, err := h.Tasks.Get(c.Request.Context(), u.ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, web.PageConfirmDelete, gin.H{"Task": t})
}

func (h *WebHandler) Delete(c *gin.Context) {
	id, ok := h.pageTaskID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)
	if err := h.Tasks.Delete(c.Request.Context(), u.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *WebHandler) Toggle(c *gin.Context) {
	id, ok := h.pageTaskID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)
	if _, err := h.Tasks.Toggle(c.Request.Context(), u.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *WebHandler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, web.PageLogin, gin.H{"Next": safeNext(c.Query("next"))})
}

func (h *WebHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := safeNext(c.PostForm("next"))
	data := gin.H{"Username": username, "Next": next}
	if strings.TrimSpace(username) == "" || c.PostForm("password") == "" {
		data["Message"] = "Username and password are required"
		h.render(c, http.StatusBadRequest, web.PageLogin, data)
		return
	}
	u, err := h.Auth.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if errors.Is(err, application.ErrInvalidCredentials) {
		data["Message"] = "Invalid credentials"
		h.render(c, http.StatusUnauthorized, web.PageLogin, data)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

func (h *WebHandler) SignupForm(c *gin.Context) {
	h.render(c, http.StatusOK, web.PageSignup, nil)
}

func (h *WebHandler) Signup(c *gin.Context) {
	in := application.SignupInput{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
	}
	res, err := h.Auth.Signup(c.Request.Context(), in)
	if err != nil {
		var ve *application.ValidationError
		if !errors.As(err, &ve) {
			h.fail(c, err)
			return
		}
		h.render(c, http.StatusBadRequest, web.PageSignup, gin.H{"Username": in.Username, "Email": in.Email, "Message": ve.Message})
		return
	}
	if err := h.startSession(c, res.User.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout clears the cookie and revokes the session id so a copied cookie stops working too.
func (h *WebHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.SessionCookie); err == nil && token != "" {
		if claims, err := h.JWT.ParseSessionToken(token); err == nil && claims.ExpiresAt != nil {
			if err := h.Sessions.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				helpers.LogError(h.Logger, "session revoke failed", err, logrus.Fields{"user_id": claims.UserID})
			}
		}
	}
	h.Cookies.Clear(c)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

func (h *WebHandler) startSession(c *gin.Context, userID int64) error {
	token, exp, err := h.JWT.GenerateSessionToken(userID)
	if err != nil {
		return err
	}
	h.Cookies.SetSession(c, token, exp)
	return nil
}

// safeNext only allows local redirect targets. Control characters and
// backslashes are rejected outright since browsers drop or rewrite them.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.ContainsAny(next, "\\") {
		return "/"
	}
	for _, r := range next {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "/"
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return next
}
