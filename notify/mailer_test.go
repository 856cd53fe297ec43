package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type captureSender struct {
	msgs []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestMailerRendersConfirmation(t *testing.T) {
	sender := &captureSender{}
	m, err := NewMailer(sender, MailerConfig{From: "no-reply@example.com", ProductName: "Example"}, nil)
	require.NoError(t, err)

	link := "https://app.test/confirm/" + strings.Repeat("a", 64)
	err = m.Notify(context.Background(), goAccount.Notification{
		Kind:      goAccount.KindConfirmation,
		AccountID: "acc-1",
		Recipient: "nova@x.com",
		Username:  "nova",
		Link:      link,
		ExpiresAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	require.Equal(t, "no-reply@example.com", msg.From)
	require.Equal(t, "nova@x.com", msg.To)
	require.Equal(t, "Confirm your account", msg.Subject)
	require.Contains(t, msg.Text, link)
	require.Contains(t, msg.Text, "Hello nova")
	require.Contains(t, msg.Text, "Example")
	require.Contains(t, msg.Text, "2026-03-02 12:00 UTC")
	require.Contains(t, msg.HTML, `href="`+link+`"`)
}

func TestMailerRendersReset(t *testing.T) {
	sender := &captureSender{}
	m, err := NewMailer(sender, MailerConfig{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Notify(context.Background(), goAccount.Notification{
		Kind:      goAccount.KindPasswordReset,
		Recipient: "nova@x.com",
		Link:      "https://app.test/reset-password/abc",
	}))
	require.Equal(t, "Reset your password", sender.msgs[0].Subject)
	require.Contains(t, sender.msgs[0].Text, "https://app.test/reset-password/abc")
}

func TestMailerEscapesHTML(t *testing.T) {
	sender := &captureSender{}
	m, err := NewMailer(sender, MailerConfig{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Notify(context.Background(), goAccount.Notification{
		Kind:      goAccount.KindConfirmation,
		Recipient: "nova@x.com",
		Username:  "<script>",
		Link:      "https://app.test/confirm/x",
	}))
	require.NotContains(t, sender.msgs[0].HTML, "<script>")
	require.Contains(t, sender.msgs[0].HTML, "&lt;script&gt;")
}

func TestMailerCustomTemplates(t *testing.T) {
	sender := &captureSender{}
	m, err := NewMailer(sender, MailerConfig{
		Templates: map[goAccount.NotificationKind]TemplateSource{
			goAccount.KindConfirmation: {Subject: "Welcome", Text: "Go to {{.Link}}"},
		},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Notify(context.Background(), goAccount.Notification{
		Kind:      goAccount.KindConfirmation,
		Recipient: "nova@x.com",
		Link:      "https://app.test/confirm/x",
	}))
	require.Equal(t, "Welcome", sender.msgs[0].Subject)
	require.Equal(t, "Go to https://app.test/confirm/x", sender.msgs[0].Text)
	require.Empty(t, sender.msgs[0].HTML)
}

func TestMailerErrors(t *testing.T) {
	_, err := NewMailer(nil, MailerConfig{}, nil)
	require.Error(t, err)

	_, err = NewMailer(&captureSender{}, MailerConfig{
		Templates: map[goAccount.NotificationKind]TemplateSource{
			goAccount.KindConfirmation: {Subject: "x", Text: "{{.Link"},
		},
	}, nil)
	require.Error(t, err)

	_, err = ParseTemplates(map[goAccount.NotificationKind]TemplateSource{
		goAccount.KindConfirmation: {Text: "x"},
	})
	require.Error(t, err)

	boom := errors.New("relay down")
	m, err := NewMailer(&captureSender{err: boom}, MailerConfig{}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, m.Notify(context.Background(), goAccount.Notification{Kind: goAccount.KindConfirmation}), ErrNoRecipient)
	require.ErrorIs(t, m.Notify(context.Background(), goAccount.Notification{Kind: goAccount.KindConfirmation, Recipient: "a@b.c"}), boom)
	require.Error(t, m.Notify(context.Background(), goAccount.Notification{Kind: "sms", Recipient: "a@b.c"}))
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Message{To: "nova@x.com", Subject: "Confirm your account", Text: "link"}))
	require.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "mail", entries[0].LoggerName)
	require.Equal(t, "nova@x.com", entries[0].ContextMap()["to"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{To: "x@y.z"}), context.Canceled)
}

func TestSenderFuncReceivesRenderedMessage(t *testing.T) {
	var got Message
	m, err := NewMailer(SenderFunc(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	}), MailerConfig{From: "team@example.com"}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Notify(context.Background(), goAccount.Notification{
		Kind:      goAccount.KindPasswordReset,
		Recipient: "nova@x.com",
		Link:      "https://app.test/reset-password/abc",
	}))
	require.Equal(t, "team@example.com", got.From)
	require.Contains(t, got.Text, "expires soon")
}
