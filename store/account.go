package store

import (
	"strings"
	"time"
)

// VerificationState is the confirmation status of an account, derived from
// its stored fields at a given instant.
type VerificationState uint8

const (
	// Unverified accounts have no active confirmation token.
	Unverified VerificationState = iota
	// PendingConfirmation accounts hold an unexpired confirmation token.
	PendingConfirmation
	// Confirmed is terminal.
	Confirmed
)

func (s VerificationState) String() string {
	switch s {
	case PendingConfirmation:
		return "pending_confirmation"
	case Confirmed:
		return "confirmed"
	default:
		return "unverified"
	}
}

// ResetState reports whether a password reset is outstanding.
type ResetState uint8

const (
	NoResetPending ResetState = iota
	ResetPending
)

func (s ResetState) String() string {
	if s == ResetPending {
		return "reset_pending"
	}
	return "no_reset_pending"
}

// Token is the persisted half of a single-use secret: a lookup key (the
// SHA-256 digest of the raw token, or the raw token itself for legacy
// confirmation records) and its expiry.
type Token struct {
	Key       string
	ExpiresAt time.Time
}

// ActiveAt reports whether the token is present and has not expired at now.
func (t *Token) ActiveAt(now time.Time) bool {
	return t != nil && t.Key != "" && t.ExpiresAt.After(now)
}

// Account is a user record as persisted by a Store.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Confirmed    bool
	Confirmation *Token
	Reset        *Token
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerificationState derives the confirmation state at now. An expired
// confirmation token is treated exactly like an absent one.
func (a *Account) VerificationState(now time.Time) VerificationState {
	switch {
	case a == nil:
		return Unverified
	case a.Confirmed:
		return Confirmed
	case a.Confirmation.ActiveAt(now):
		return PendingConfirmation
	default:
		return Unverified
	}
}

// ResetState derives the reset state at now.
func (a *Account) ResetState(now time.Time) ResetState {
	if a != nil && a.Reset.ActiveAt(now) {
		return ResetPending
	}
	return NoResetPending
}

// Clone returns a deep copy so callers cannot mutate store-owned records.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Confirmation != nil {
		c := *a.Confirmation
		out.Confirmation = &c
	}
	if a.Reset != nil {
		r := *a.Reset
		out.Reset = &r
	}
	return &out
}

// NormalizeEmail trims and lower-cases an email address the way accounts
// are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims a handle the way accounts are stored.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
