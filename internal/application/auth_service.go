package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/metrics"
)

const tokenCachePrefix = "auth:token:"

// SignupNotifier is told about freshly created accounts. Failures are logged, never surfaced.
type SignupNotifier interface {
	UserSignedUp(ctx context.Context, u *entity.User) error
}

type SignupInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type AuthResult struct {
	Token string
	User  *entity.User
}

// cachedUser is what the token cache stores; the password hash never leaves the database.
type cachedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	rdb      redis.Cmdable
	cacheTTL time.Duration
	notifier SignupNotifier
	logger   *logrus.Logger

	newToken func() (string, error)
}

// NewAuthService wires the auth use cases. rdb and notifier may be nil.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, rdb *redis.Client, cacheTTL time.Duration, notifier SignupNotifier, logger *logrus.Logger) *AuthService {
	s := &AuthService{
		users:    users,
		tokens:   tokens,
		cacheTTL: cacheTTL,
		notifier: notifier,
		logger:   logger,
		newToken: helpers.GenerateAPIToken,
	}
	if rdb != nil {
		s.rdb = rdb
	}
	return s
}

// Signup creates an active account and issues its API token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (res *AuthResult, err error) {
	defer func() { metrics.IncAuthEvent("signup", err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, invalid("Username, email, and password are required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, invalid("Passwords do not match")
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, invalid("Username already exists")
	}
	exists, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, invalid("Email already exists")
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Username: username,
		Email:    email,
		Password: hash,
		IsActive: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent signup
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, invalid("Username already exists")
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, invalid("Email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tok, err := s.issueToken(ctx, u.ID)
	if err != nil {
		if delErr := s.users.Delete(ctx, u.ID); delErr != nil {
			helpers.LogError(s.logger, "signup rollback failed", delErr, logrus.Fields{"user_id": u.ID})
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.notifier != nil {
		if nErr := s.notifier.UserSignedUp(ctx, u); nErr != nil {
			helpers.LogError(s.logger, "signup notification failed", nErr, logrus.Fields{"user_id": u.ID})
		}
	}
	helpers.LogInfo(s.logger, "user signed up", logrus.Fields{"user_id": u.ID, "username": u.Username})
	return &AuthResult{Token: tok.Key, User: u}, nil
}

// Login returns the user's existing token, creating one if none is live.
func (s *AuthService) Login(ctx context.Context, username, password string) (res *AuthResult, err error) {
	defer func() { metrics.IncAuthEvent("login", err) }()

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, invalid("Username and password are required")
	}
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	tok, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: tok.Key, User: u}, nil
}

// Authenticate checks credentials without touching tokens. Used by the web login.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive || !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Logout revokes the token identified by key and its cache entry.
// Unknown keys are ignored and storage failures are only logged.
func (s *AuthService) Logout(ctx context.Context, key string) {
	if key == "" {
		return
	}
	// the row goes first; evicting earlier lets a concurrent WhoAmI re-cache it
	defer s.evict(ctx, key)
	tok, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			helpers.LogError(s.logger, "logout token lookup failed", err, nil)
		}
		metrics.IncAuthEvent("logout", nil)
		return
	}
	err = s.tokens.DeleteByUser(ctx, tok.UserID)
	if err != nil {
		helpers.LogError(s.logger, "logout token delete failed", err, logrus.Fields{"user_id": tok.UserID})
	}
	metrics.IncAuthEvent("logout", err)
}

// WhoAmI resolves an API token to its active owner.
func (s *AuthService) WhoAmI(ctx context.Context, key string) (*entity.User, error) {
	if key == "" {
		return nil, ErrUnauthenticated
	}
	if s.rdb != nil {
		var cu cachedUser
		ok, err := helpers.RedisGetJSON(ctx, s.rdb, tokenCachePrefix+key, &cu)
		if err != nil {
			helpers.LogError(s.logger, "token cache read failed", err, nil)
		} else if ok {
			// the cache skips the token lookup only; activity is checked on every call
			return s.UserByID(ctx, cu.ID)
		}
	}

	tok, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	u, err := s.UserByID(ctx, tok.UserID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		cu := cachedUser{ID: u.ID, Username: u.Username, Email: u.Email}
		if err := helpers.RedisSetJSON(ctx, s.rdb, tokenCachePrefix+key, cu, s.cacheTTL); err != nil {
			helpers.LogError(s.logger, "token cache write failed", err, nil)
		}
	}
	return u, nil
}

// UserByID loads an active user, as the web session middleware needs.
func (s *AuthService) UserByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID int64) (*entity.AuthToken, error) {
	key, err := s.newToken()
	if err != nil {
		return nil, err
	}
	return s.tokens.GetOrCreate(ctx, userID, key)
}

func (s *AuthService) evict(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.rdb, tokenCachePrefix+key); err != nil {
		helpers.LogError(s.logger, "token cache evict failed", err, nil)
	}
}
