// Command mail-check sends one test email through the configured SMTP relay
// so credentials and connectivity can be verified before deploying.
//
//	ACCOUNTS_SMTP_HOST=smtp.example.com ACCOUNTS_SMTP_USER=... \
//	ACCOUNTS_SMTP_PASS=... ACCOUNTS_MAIL_FROM=no-reply@example.com \
//	go run ./cmd/mail-check -to you@example.com
//
// With -kind confirmation or -kind password_reset the message is rendered
// from the built-in templates with a placeholder link.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/cmdconfig"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/notify/smtp"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional config file")
		to         = flag.String("to", "", "recipient address")
		kind       = flag.String("kind", "", "render a notification template: confirmation or password_reset")
		timeout    = flag.Duration("timeout", 30*time.Second, "send timeout")
	)
	flag.Parse()

	if strings.TrimSpace(*to) == "" {
		fmt.Fprintln(os.Stderr, "-to is required")
		os.Exit(2)
	}

	cfg, err := cmdconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	logger, err := cmdconfig.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	sender, err := smtp.New(smtp.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		MaxConns: 1,
	})
	if err != nil {
		logger.Fatal("smtp setup", zap.Error(err))
	}
	defer sender.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *kind == "" {
		err = sender.Send(ctx, notify.Message{
			To:      *to,
			Subject: "SMTP test",
			Text:    "This is a test message. If you can read it, outbound mail works.",
		})
	} else {
		err = sendTemplate(ctx, sender, cfg, goAccount.NotificationKind(*kind), *to, logger)
	}
	if err != nil {
		logger.Error("send failed", zap.String("host", cfg.SMTPHost), zap.Error(err))
		sender.Close()
		os.Exit(1)
	}
	logger.Info("test email sent", zap.String("to", *to), zap.String("host", cfg.SMTPHost))
}

func sendTemplate(ctx context.Context, sender notify.Sender, cfg *cmdconfig.Config, kind goAccount.NotificationKind, to string, logger *zap.Logger) error {
	mailer, err := notify.NewMailer(sender, notify.MailerConfig{From: cfg.MailFrom}, logger)
	if err != nil {
		return err
	}

	path := "/confirm/"
	if kind == goAccount.KindPasswordReset {
		path = "/reset-password/"
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://example.invalid"
	}

	return mailer.Notify(ctx, goAccount.Notification{
		Kind:      kind,
		Recipient: to,
		Username:  "mail-check",
		Link:      strings.TrimRight(base, "/") + path + strings.Repeat("0", 64),
		ExpiresAt: time.Now().Add(time.Hour),
	})
}
