package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches a lookup or conditional update.
	ErrNotFound = errors.New("store: account not found")
	// ErrConflict is returned when a write would violate handle or email uniqueness.
	ErrConflict = errors.New("store: duplicate username or email")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store persists accounts and performs the conditional token updates the
// engine relies on. Every method must be safe for concurrent use.
//
// Token lookups and consumptions filter on expiry inside the backend query,
// so a record whose token has expired never matches even if the key does.
type Store interface {
	// Insert creates a new account. It returns ErrConflict when the username
	// or email is already taken.
	Insert(ctx context.Context, account *Account) error

	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByHandleOrEmail returns the first account whose username equals
	// handle or whose email equals email.
	FindByHandleOrEmail(ctx context.Context, handle, email string) (*Account, error)

	// FindByConfirmationToken returns the unconfirmed account holding an
	// active confirmation token with the given key.
	FindByConfirmationToken(ctx context.Context, key string, now time.Time) (*Account, error)
	// FindByResetDigest returns the account holding an active reset token
	// with the given digest.
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*Account, error)

	// SetConfirmationToken replaces the confirmation token of an unconfirmed
	// account. Confirmed or missing accounts yield ErrNotFound.
	SetConfirmationToken(ctx context.Context, id string, token Token, now time.Time) error
	// SetResetToken replaces the reset token of an account.
	SetResetToken(ctx context.Context, id string, token Token, now time.Time) error

	// ConsumeConfirmation atomically marks the matching account confirmed and
	// clears its confirmation token. At most one caller observes success for
	// a given key.
	ConsumeConfirmation(ctx context.Context, key string, now time.Time) (*Account, error)
	// ConsumeReset atomically replaces the password hash of the matching
	// account and clears its reset token.
	ConsumeReset(ctx context.Context, digest, passwordHash string, now time.Time) (*Account, error)

	UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error

	// PurgeExpiredUnconfirmed deletes unconfirmed accounts whose confirmation
	// token expired before now and returns how many were removed.
	PurgeExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error)
}
