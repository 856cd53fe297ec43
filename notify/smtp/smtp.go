// Package smtp delivers notify.Message values through a pooled SMTP
// connection.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	netsmtp "net/smtp"
	"time"

	"github.com/MrEthical07/goAccount/notify"
	"github.com/knadh/smtppool"
)

const (
	defaultPort        = 587
	defaultMaxConns    = 4
	defaultIdleTimeout = 15 * time.Second
	defaultWaitTimeout = 5 * time.Second
)

// Config describes the SMTP relay.
type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	MaxConns           int
	IdleTimeout        time.Duration
	PoolWaitTimeout    time.Duration
	InsecureSkipVerify bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Port == 0 {
		out.Port = defaultPort
	}
	if out.MaxConns <= 0 {
		out.MaxConns = defaultMaxConns
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = defaultIdleTimeout
	}
	if out.PoolWaitTimeout <= 0 {
		out.PoolWaitTimeout = defaultWaitTimeout
	}
	return out
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("smtp: host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("smtp: invalid port %d", c.Port)
	}
	if c.From == "" {
		return errors.New("smtp: from address is required")
	}
	if (c.Username == "") != (c.Password == "") {
		return errors.New("smtp: username and password must be set together")
	}
	return nil
}

// Sender is a notify.Sender backed by an smtppool.Pool.
type Sender struct {
	pool *smtppool.Pool
	from string
}

var _ notify.Sender = (*Sender)(nil)

// New validates cfg and opens the connection pool.
func New(cfg Config) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := smtppool.New(poolOptions(cfg.withDefaults()))
	if err != nil {
		return nil, fmt.Errorf("smtp: open pool: %w", err)
	}
	return &Sender{pool: pool, from: cfg.From}, nil
}

func poolOptions(cfg Config) smtppool.Opt {
	var auth netsmtp.Auth
	if cfg.Username != "" {
		auth = netsmtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        cfg.MaxConns,
		IdleTimeout:     cfg.IdleTimeout,
		PoolWaitTimeout: cfg.PoolWaitTimeout,
		TLSConfig: &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		Auth: auth,
	}
}

// Send delivers msg. smtppool has no context support, so ctx is only
// checked before the pool is entered.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return notify.ErrNoRecipient
	}

	if err := s.pool.Send(toEmail(msg, s.from)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}

func toEmail(msg notify.Message, defaultFrom string) smtppool.Email {
	from := msg.From
	if from == "" {
		from = defaultFrom
	}

	e := smtppool.Email{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    []byte(msg.Text),
	}
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}
	return e
}

// Close shuts the pool down.
func (s *Sender) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
