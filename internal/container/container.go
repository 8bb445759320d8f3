package container

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// Container carries the constructed infrastructure to the router.
// Optional clients (Redis, RabbitMQ, Elasticsearch) are nil when disabled.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Users  repository.UserRepository
	Tokens repository.TokenRepository
	Tasks  repository.TaskRepository
	Ping   func(ctx context.Context) error

	Redis  *redis.Client
	Rabbit *helpers.RabbitQueue
	ES     *elasticsearch.Client

	JWT     *helpers.JWTManager
	Cookies *helpers.Manager
}

// Repositories is the storage side of the container, provided by one backend.
type Repositories struct {
	Users  repository.UserRepository
	Tokens repository.TokenRepository
	Tasks  repository.TaskRepository
	Ping   func(ctx context.Context) error
}

// New builds a container around repos; optional clients are attached by the caller.
func New(cfg *config.Config, logger *logrus.Logger, repos Repositories) *Container {
	return &Container{
		Config:  cfg,
		Logger:  logger,
		Users:   repos.Users,
		Tokens:  repos.Tokens,
		Tasks:   repos.Tasks,
		Ping:    repos.Ping,
		JWT:     helpers.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL),
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
}
