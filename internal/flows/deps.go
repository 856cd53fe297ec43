package flows

import (
	"context"
	"errors"
	"time"
)

// Delivery is the notification payload a flow hands to its Dispatch
// dependency once the token is committed.
type Delivery struct {
	AccountID string
	Recipient string
	Username  string
	Link      string
	ExpiresAt time.Time
}

// Issued describes a committed token.
type Issued struct {
	AccountID string
	RawToken  string
	Link      string
	ExpiresAt time.Time
}

// AuditFunc records an audit event. Metadata is built lazily.
type AuditFunc func(ctx context.Context, event string, success bool, accountID string, err error, metadata func() map[string]string)

func nopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func nopMetric(int) {}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
