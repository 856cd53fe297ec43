package notify

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount"
	"go.uber.org/zap"
)

// MailerConfig controls how notifications are addressed and rendered.
type MailerConfig struct {
	From        string
	ProductName string
	// Templates overrides the built-in templates per kind. Kinds not listed
	// keep their defaults.
	Templates map[goAccount.NotificationKind]TemplateSource
}

// Mailer renders goAccount notifications and delivers them through a Sender.
type Mailer struct {
	from        string
	productName string
	templates   *Templates
	sender      Sender
	logger      *zap.Logger
}

var _ goAccount.Notifier = (*Mailer)(nil)

// NewMailer parses the configured templates. A nil logger discards output.
func NewMailer(sender Sender, cfg MailerConfig, logger *zap.Logger) (*Mailer, error) {
	if sender == nil {
		return nil, errors.New("notify: sender required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sources := DefaultTemplateSources()
	for kind, src := range cfg.Templates {
		sources[kind] = src
	}
	templates, err := ParseTemplates(sources)
	if err != nil {
		return nil, err
	}

	productName := cfg.ProductName
	if productName == "" {
		productName = "your account"
	}

	return &Mailer{
		from:        cfg.From,
		productName: productName,
		templates:   templates,
		sender:      sender,
		logger:      logger.Named("mailer"),
	}, nil
}

// Notify implements goAccount.Notifier.
func (m *Mailer) Notify(ctx context.Context, n goAccount.Notification) error {
	if n.Recipient == "" {
		return ErrNoRecipient
	}

	msg, err := m.templates.Render(n.Kind, TemplateData{
		ProductName: m.productName,
		Username:    n.Username,
		Email:       n.Recipient,
		Link:        n.Link,
		ExpiresAt:   formatExpiry(n.ExpiresAt),
	})
	if err != nil {
		return err
	}
	msg.From = m.from
	msg.To = n.Recipient

	if err := m.sender.Send(ctx, msg); err != nil {
		return err
	}

	m.logger.Debug("notification sent",
		zap.String("kind", string(n.Kind)),
		zap.String("account_id", n.AccountID),
	)
	return nil
}
