package goAccount

import (
	"context"
	"time"
)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	// Role defaults to Config.Account.DefaultRole when empty.
	Role string
}

// IssueResult describes a freshly issued token. RawToken is the only copy of
// the secret; the store keeps a digest.
type IssueResult struct {
	AccountID string
	RawToken  string
	Link      string
	ExpiresAt time.Time
}

// Account is the public view of a stored account. It never carries the
// password hash or token digests.
type Account struct {
	ID                string
	Username          string
	Email             string
	Role              string
	Confirmed         bool
	VerificationState string
	ResetState        string
	CreatedAt         time.Time
}

// NotificationKind selects the message a Notifier renders.
type NotificationKind string

const (
	// KindConfirmation asks the recipient to confirm their account.
	KindConfirmation NotificationKind = "confirmation"
	// KindPasswordReset carries a password reset link.
	KindPasswordReset NotificationKind = "password_reset"
)

// Notification is handed to a Notifier after a token has been committed.
type Notification struct {
	Kind      NotificationKind
	AccountID string
	Recipient string
	Username  string
	Link      string
	ExpiresAt time.Time
}

// Notifier delivers notifications, typically by email.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time
