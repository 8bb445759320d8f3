package application

import (
	"context"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
	"github.com/oksasatya/go-task-manager/pkg/mailer/templates"
)

// JSONPublisher puts a message on a queue. *helpers.RabbitQueue satisfies it.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// WelcomeNotifier enqueues a welcome email for new accounts.
type WelcomeNotifier struct {
	pub      JSONPublisher
	appName  string
	loginURL string
}

func NewWelcomeNotifier(pub JSONPublisher, appName, loginURL string) *WelcomeNotifier {
	return &WelcomeNotifier{pub: pub, appName: appName, loginURL: loginURL}
}

func (n *WelcomeNotifier) UserSignedUp(ctx context.Context, u *entity.User) error {
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data: templates.NewWelcomeData(u.Username,
			templates.WithEmail(u.Email),
			templates.WithAppName(n.appName),
			templates.WithLoginURL(n.loginURL),
		),
	})
}
