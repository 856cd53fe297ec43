package smtp

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/notify"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "smtp.example.com", From: "no-reply@example.com"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{From: "a@b.c"}},
		{"missing from", Config{Host: "smtp.example.com"}},
		{"bad port", Config{Host: "smtp.example.com", From: "a@b.c", Port: 70000}},
		{"username without password", Config{Host: "smtp.example.com", From: "a@b.c", Username: "u"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.cfg.Validate())
		})
	}

	_, err := New(Config{})
	require.Error(t, err)
}

func TestPoolOptionsDefaults(t *testing.T) {
	cfg := Config{Host: "smtp.example.com", From: "a@b.c"}
	opt := poolOptions(cfg.withDefaults())

	require.Equal(t, "smtp.example.com", opt.Host)
	require.Equal(t, defaultPort, opt.Port)
	require.Equal(t, defaultMaxConns, opt.MaxConns)
	require.Equal(t, defaultIdleTimeout, opt.IdleTimeout)
	require.Equal(t, defaultWaitTimeout, opt.PoolWaitTimeout)
	require.Equal(t, "smtp.example.com", opt.TLSConfig.ServerName)
	require.Nil(t, opt.Auth)

	cfg.Username, cfg.Password, cfg.MaxConns, cfg.IdleTimeout = "u", "p", 9, time.Minute
	opt = poolOptions(cfg.withDefaults())
	require.NotNil(t, opt.Auth)
	require.Equal(t, 9, opt.MaxConns)
	require.Equal(t, time.Minute, opt.IdleTimeout)
}

func TestToEmail(t *testing.T) {
	e := toEmail(notify.Message{To: "nova@x.com", Subject: "Hi", Text: "body"}, "no-reply@example.com")
	require.Equal(t, "no-reply@example.com", e.From)
	require.Equal(t, []string{"nova@x.com"}, e.To)
	require.Equal(t, []byte("body"), e.Text)
	require.Nil(t, e.HTML)

	e = toEmail(notify.Message{From: "team@example.com", To: "nova@x.com", HTML: "<p>x</p>"}, "no-reply@example.com")
	require.Equal(t, "team@example.com", e.From)
	require.Equal(t, []byte("<p>x</p>"), e.HTML)
}

func TestSendChecksContextAndRecipient(t *testing.T) {
	s := &Sender{from: "a@b.c"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, notify.Message{To: "x@y.z"}), context.Canceled)
	require.ErrorIs(t, s.Send(context.Background(), notify.Message{}), notify.ErrNoRecipient)

	var nilSender *Sender
	nilSender.Close()
}
