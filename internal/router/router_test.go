package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/sqlite"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	helpers.BcryptCost = bcrypt.MinCost
	validation.Init()
}

func newTestServer(t *testing.T, global ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	logger := helpers.NewDiscardLogger()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		AppName:       "tasks-test",
		PublicURL:     "http://localhost:8080",
		TokenCacheTTL: time.Minute,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		CookieDomain:  "",
		ESTasksIndex:  "tasks",
	}
	c := container.New(cfg, logger, container.Repositories{
		Users:  store.Users(),
		Tokens: store.Tokens(),
		Tasks:  store.Tasks(),
		Ping:   store.Ping,
	})

	engine := gin.New()
	engine.Use(global...)
	reg := NewRegistry(engine)
	if err := InitModules(reg, c); err != nil {
		t.Fatalf("init modules: %v", err)
	}
	reg.RegisterAll()
	return engine
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
	Message string `json:"message"`
}

type taskBody struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
	User        struct {
		Username string `json:"username"`
	} `json:"user"`
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func signup(t *testing.T, h http.Handler, name string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":         name,
		"email":            name + "@example.com",
		"password":         "s3cret-pass",
		"confirm_password": "s3cret-pass",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", name, w.Code, w.Body.String())
	}
	res := decode[authBody](t, w)
	if res.Token == "" || res.User.Username != name || res.Message != "User created successfully" {
		t.Fatalf("unexpected signup body: %+v", res)
	}
	return res.Token
}

func TestSignupTaskToggleLogoutScenario(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123", "confirm_password": "pw123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	token := decode[authBody](t, w).Token

	w = do(t, h, http.MethodPost, "/api/tasks/", token, map[string]any{"title": "Buy milk"})
	created := decode[taskBody](t, w)
	if w.Code != http.StatusCreated || created.ID != 1 || created.Completed || created.Priority != nil {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"priority":null`) {
		t.Fatalf("priority should serialize as null: %s", w.Body.String())
	}

	w = do(t, h, http.MethodPatch, "/api/tasks/1/toggle/", token, nil)
	if w.Code != http.StatusOK || !decode[taskBody](t, w).Completed {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/tasks/", token, nil)
	list := decode[[]taskBody](t, w)
	if w.Code != http.StatusOK || len(list) != 1 || !list[0].Completed {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := do(t, h, http.MethodPost, "/api/auth/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/tasks/", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("list after logout = %d, want 401", w.Code)
	}
}

func TestTaskLifecycleOverAPI(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "alice")

	w := do(t, h, http.MethodPost, "/api/tasks/", token, map[string]any{"title": "Buy milk", "priority": "High"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[taskBody](t, w)
	if created.Completed || created.Description != nil || created.Category != nil {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if created.Priority == nil || *created.Priority != "High" || created.User.Username != "alice" {
		t.Fatalf("unexpected task: %+v", created)
	}

	w = do(t, h, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/toggle/", created.ID), token, nil)
	if w.Code != http.StatusOK || !decode[taskBody](t, w).Completed {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/tasks/?status=completed", token, nil)
	list := decode[[]taskBody](t, w)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].Title != "Buy milk" || !list[0].Completed {
		t.Fatalf("list completed: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/tasks/?status=pending", token, nil)
	if got := decode[[]taskBody](t, w); len(got) != 0 {
		t.Fatalf("pending = %d tasks, want 0", len(got))
	}
	w = do(t, h, http.MethodGet, "/api/tasks/?status=later", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter = %d", w.Code)
	}

	w = do(t, h, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/", created.ID), token, map[string]any{"description": "2 liters", "priority": nil})
	patched := decode[taskBody](t, w)
	if w.Code != http.StatusOK || patched.Description == nil || *patched.Description != "2 liters" || patched.Priority != nil || !patched.Completed {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/tasks/%d/", created.ID), token, map[string]any{"title": "Buy oat milk"})
	replaced := decode[taskBody](t, w)
	if w.Code != http.StatusOK || replaced.Title != "Buy oat milk" || replaced.Description != nil || !replaced.Completed {
		t.Fatalf("replace: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/tasks/search/?q=oat", token, nil)
	if found := decode[[]taskBody](t, w); w.Code != http.StatusOK || len(found) != 1 {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodDelete, fmt.Sprintf("/api/tasks/%d/", created.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, fmt.Sprintf("/api/tasks/%d/", created.ID), token, nil)
	if w.Code != http.StatusNotFound || decode[errorBody](t, w).Message != "Not found." {
		t.Fatalf("get deleted: %d %s", w.Code, w.Body.String())
	}
}

func TestTaskValidationOverAPI(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "alice")

	w := do(t, h, http.MethodPost, "/api/tasks/", token, map[string]any{"description": "no title"})
	if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Errors["title"] == "" {
		t.Fatalf("missing title: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPost, "/api/tasks/", token, map[string]any{"title": strings.Repeat("x", 201)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("long title: %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/tasks/", token, map[string]any{"title": "ok", "category": "Errands"})
	if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Errors["category"] == "" {
		t.Fatalf("bad category: %d %s", w.Code, w.Body.String())
	}
}

func TestTasksAreScopedToOwner(t *testing.T) {
	h := newTestServer(t)
	alice := signup(t, h, "alice")
	bob := signup(t, h, "bob")

	w := do(t, h, http.MethodPost, "/api/tasks/", alice, map[string]any{"title": "Private"})
	id := decode[taskBody](t, w).ID

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, fmt.Sprintf("/api/tasks/%d/", id), nil},
		{http.MethodPut, fmt.Sprintf("/api/tasks/%d/", id), map[string]any{"title": "Mine"}},
		{http.MethodPatch, fmt.Sprintf("/api/tasks/%d/", id), map[string]any{"title": "Mine"}},
		{http.MethodPatch, fmt.Sprintf("/api/tasks/%d/toggle/", id), nil},
		{http.MethodDelete, fmt.Sprintf("/api/tasks/%d/", id), nil},
		{http.MethodGet, "/api/tasks/abc/", nil},
		{http.MethodGet, "/api/tasks/0/", nil},
	} {
		if w := do(t, h, tc.method, tc.path, bob, tc.body); w.Code != http.StatusNotFound {
			t.Errorf("%s %s as bob = %d, want 404", tc.method, tc.path, w.Code)
		}
	}

	w = do(t, h, http.MethodGet, "/api/tasks/", bob, nil)
	if got := decode[[]taskBody](t, w); len(got) != 0 {
		t.Fatalf("bob sees %d tasks", len(got))
	}
	w = do(t, h, http.MethodGet, fmt.Sprintf("/api/tasks/%d/", id), alice, nil)
	if w.Code != http.StatusOK || decode[taskBody](t, w).Title != "Private" {
		t.Fatalf("alice task changed: %d %s", w.Code, w.Body.String())
	}
}

func TestTokenLifecycle(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "alice")

	w := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "s3cret-pass"})
	if w.Code != http.StatusOK || decode[authBody](t, w).Token != token {
		t.Fatalf("login should return the existing token: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/auth/user", token, nil)
	if w.Code != http.StatusOK || decode[authBody](t, w).Token != "" {
		t.Fatalf("current user: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/tasks/", token, nil)
	if w.Code != http.StatusUnauthorized || decode[errorBody](t, w).Message != "Invalid token." {
		t.Fatalf("after logout: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/auth/user", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("user after logout: %d", w.Code)
	}
	// logout without a token still succeeds
	if w := do(t, h, http.MethodPost, "/api/auth/logout", "", nil); w.Code != http.StatusOK {
		t.Fatalf("anonymous logout: %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "s3cret-pass"})
	if fresh := decode[authBody](t, w).Token; fresh == "" || fresh == token {
		t.Fatalf("login after logout should issue a new token, got %q", fresh)
	}

	w = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	if w.Code != http.StatusUnauthorized || decode[errorBody](t, w).Message != "Invalid credentials" {
		t.Fatalf("wrong password: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/tasks/", "", nil)
	if w.Code != http.StatusUnauthorized || decode[errorBody](t, w).Message != "Authentication credentials were not provided." {
		t.Fatalf("no token: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthRoutesAcceptTrailingSlash(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/auth/signup/", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123", "confirm_password": "pw123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup/: %d %q", w.Code, w.Header().Get("Location"))
	}
	token := decode[authBody](t, w).Token

	w = do(t, h, http.MethodPost, "/api/auth/login/", "", map[string]string{"username": "alice", "password": "pw123"})
	if w.Code != http.StatusOK || decode[authBody](t, w).Token != token {
		t.Fatalf("login/: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/api/auth/user/", token, nil); w.Code != http.StatusOK {
		t.Fatalf("user/: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/auth/csrf/", "", nil); w.Code != http.StatusOK {
		t.Fatalf("csrf/: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/auth/logout/", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout/: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/auth/user/", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("user/ after logout: %d", w.Code)
	}
}

func TestCrossOriginLoginGetsCORSHeaders(t *testing.T) {
	h := newTestServer(t, cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	signup(t, h, "alice")

	body := strings.NewReader(`{"username":"alice","password":"s3cret-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login/", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login/: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestSignupValidationOverAPI(t *testing.T) {
	h := newTestServer(t)
	signup(t, h, "alice")

	cases := []struct {
		body map[string]string
		want string
	}{
		{map[string]string{"username": "bob"}, "Username, email, and password are required"},
		{map[string]string{"username": "bob", "email": "b@example.com", "password": "a", "confirm_password": "b"}, "Passwords do not match"},
		{map[string]string{"username": "alice", "email": "new@example.com", "password": "a", "confirm_password": "a"}, "Username already exists"},
		{map[string]string{"username": "bob", "email": "alice@example.com", "password": "a", "confirm_password": "a"}, "Email already exists"},
	}
	for _, tc := range cases {
		w := do(t, h, http.MethodPost, "/api/auth/signup", "", tc.body)
		if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Message != tc.want {
			t.Errorf("signup %v = %d %s, want 400 %q", tc.body, w.Code, w.Body.String(), tc.want)
		}
	}
}

func TestSuggestionsOverAPI(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "alice")

	w := do(t, h, http.MethodGet, "/api/tasks/suggestions/", token, nil)
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || w.Code != http.StatusOK || len(got) == 0 {
		t.Fatalf("suggestions: %d %s", w.Code, w.Body.String())
	}
	if got[0]["title"] == "" {
		t.Fatalf("suggestion without title: %v", got[0])
	}
}

func TestHealthAndUnknownAPIRoute(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/nothing-here", "", nil)
	if w.Code != http.StatusNotFound || decode[errorBody](t, w).Message != "Not found." {
		t.Fatalf("unknown api route: %d %s", w.Code, w.Body.String())
	}
}

func form(t *testing.T, h http.Handler, path string, values url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == helpers.SessionCookie && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestWebPagesRequireSession(t *testing.T) {
	h := newTestServer(t)
	w := get(h, "/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("anonymous / = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login/?next=%2F" {
		t.Fatalf("redirect = %q", loc)
	}
	if w := get(h, "/login/", nil); w.Code != http.StatusOK {
		t.Fatalf("login page = %d", w.Code)
	}
}

func TestWebLoginAndTaskFlow(t *testing.T) {
	h := newTestServer(t)
	signup(t, h, "alice")

	w := form(t, h, "/login/", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	if w.Code != http.StatusUnauthorized || sessionCookie(w) != nil {
		t.Fatalf("bad login = %d", w.Code)
	}

	w = form(t, h, "/login/", url.Values{"username": {"alice"}, "password": {"s3cret-pass"}, "next": {"/create/"}}, nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/create/" {
		t.Fatalf("login = %d %q", w.Code, w.Header().Get("Location"))
	}
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("login did not set a session cookie")
	}

	w = form(t, h, "/create/", url.Values{"title": {"Water plants"}, "category": {"Home"}}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	w = get(h, "/", cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Water plants") {
		t.Fatalf("list page = %d", w.Code)
	}

	w = form(t, h, "/create/", url.Values{"title": {""}}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty title = %d", w.Code)
	}

	w = form(t, h, "/logout/", nil, cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login/" {
		t.Fatalf("logout = %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestWebSignupStartsSession(t *testing.T) {
	h := newTestServer(t)
	w := form(t, h, "/signup/", url.Values{
		"username":         {"carol"},
		"email":            {"carol@example.com"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	}, nil)
	if w.Code != http.StatusSeeOther || sessionCookie(w) == nil {
		t.Fatalf("signup = %d", w.Code)
	}

	w = form(t, h, "/signup/", url.Values{"username": {"carol"}, "email": {"c2@example.com"}, "password": {"pw"}, "confirm_password": {"pw"}}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Username already exists") {
		t.Fatalf("duplicate signup = %d", w.Code)
	}
}
