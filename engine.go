package goAccount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/dispatch"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"go.uber.org/zap"
)

// Engine runs account registration, confirmation, login, and password reset
// against a Store. It is safe for concurrent use once built.
type Engine struct {
	config            Config
	store             store.Store
	hasher            *password.Hasher
	notifier          Notifier
	notifyQueue       *dispatch.Queue[Notification]
	onDeliveryFailure func(Notification, error)
	audit             *auditDispatcher
	metrics           *Metrics
	logger            *zap.Logger
	clock             Clock
}

// Close describes the close operation and its observable behavior.
//
// Close drains queued notifications first, then queued audit events, and
// is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifyQueue != nil {
		e.notifyQueue.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// NotificationsDropped returns the number of asynchronous notifications
// rejected on a full queue.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil || e.notifyQueue == nil {
		return 0
	}
	return e.notifyQueue.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
// MetricsSnapshot does not mutate shared global state and can be used concurrently.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// FindAccount returns the public view of the account registered under email.
func (e *Engine) FindAccount(ctx context.Context, email string) (*Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	acc, err := e.store.FindByEmail(ctx, store.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, e.mapStoreError(err)
	}
	return e.publicAccount(acc), nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) publicAccount(acc *store.Account) *Account {
	if acc == nil {
		return nil
	}
	now := e.now()
	return &Account{
		ID:                acc.ID,
		Username:          acc.Username,
		Email:             acc.Email,
		Role:              acc.Role,
		Confirmed:         acc.Confirmed,
		VerificationState: acc.VerificationState(now).String(),
		ResetState:        acc.ResetState(now).String(),
		CreatedAt:         acc.CreatedAt,
	}
}

func (e *Engine) hashPassword(plain string) (string, error) {
	start := time.Now()
	hash, err := e.hasher.Hash(plain)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricPasswordHashLatency, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong) {
			return "", ErrInvalidCredential
		}
		return "", fmt.Errorf("password hash: %w", err)
	}
	return hash, nil
}

// linkBuilder returns a function building the link for a raw token under
// path. A base URL from WithBaseURL takes precedence over Config.Links.
func (e *Engine) linkBuilder(path string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, raw string) (string, error) {
		base := baseURLFromContext(ctx)
		if base == "" {
			base = e.config.Links.BaseURL
		}
		if base == "" {
			return "", fmt.Errorf("%w: base URL is not configured", ErrValidation)
		}
		return strings.TrimRight(base, "/") + path + raw, nil
	}
}

func (e *Engine) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("account store call failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func newTokenPair() (string, string, error) {
	return internal.NewSecretToken()
}
