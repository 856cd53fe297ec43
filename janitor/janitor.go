// Package janitor periodically deletes accounts that were never confirmed
// before their confirmation token expired.
//
// Reads in the engine already ignore expired tokens, so running the janitor
// only reclaims storage and frees the username and email for re-registration.
package janitor

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Hour
	defaultTimeout  = time.Minute
)

// Config controls the purge schedule.
type Config struct {
	// Interval between purges. Zero means one hour.
	Interval time.Duration
	// Timeout bounds a single purge. Zero means one minute.
	Timeout time.Duration
}

// Janitor runs PurgeExpiredUnconfirmed against a store.
type Janitor struct {
	store    store.Store
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New returns a Janitor. A nil logger discards output and a nil clock uses
// time.Now.
func New(s store.Store, cfg Config, logger *zap.Logger, clock func() time.Time) (*Janitor, error) {
	if s == nil {
		return nil, errors.New("janitor: store required")
	}
	if cfg.Interval < 0 || cfg.Timeout < 0 {
		return nil, errors.New("janitor: interval and timeout must be >= 0")
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}

	return &Janitor{
		store:    s,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger.Named("janitor"),
		now:      clock,
	}, nil
}

// PurgeOnce deletes every unconfirmed account whose confirmation expired at
// or before now and returns how many were removed.
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := j.now()
	n, err := j.store.PurgeExpiredUnconfirmed(ctx, start)
	if err != nil {
		j.logger.Error("purge failed", zap.Error(err))
		return 0, err
	}

	j.logger.Info("purged expired unconfirmed accounts",
		zap.Int64("deleted", n),
		zap.Duration("elapsed", j.now().Sub(start)),
	)
	return n, nil
}

// Run purges immediately and then on every interval until ctx is done. A
// failed purge is logged and retried on the next tick.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.PurgeOnce(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
