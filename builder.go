package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal/dispatch"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be used for a single Build.
type Builder struct {
	config Config

	store     store.Store
	notifier  Notifier
	auditSink AuditSink
	logger    *zap.Logger
	clock     Clock

	onDeliveryFailure func(Notification, error)

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account store. It is required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithNotifier sets the notification bridge. It is required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithDeliveryFailureHook registers fn to observe failed notifications.
// With asynchronous delivery it is the only way a caller learns of them.
func (b *Builder) WithDeliveryFailureHook(fn func(Notification, error)) *Builder {
	b.onDeliveryFailure = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. Callers
// must Close the Engine to drain queued notifications and audit events.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:            cloneConfig(cfg),
		store:             b.store,
		hasher:            hasher,
		notifier:          b.notifier,
		onDeliveryFailure: b.onDeliveryFailure,
		logger:            logger.Named("goaccount"),
		clock:             clock,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Notification.Async {
		engine.notifyQueue = dispatch.New(dispatch.Config{
			BufferSize: cfg.Notification.BufferSize,
			Workers:    cfg.Notification.Workers,
			DropIfFull: cfg.Notification.DropIfFull,
		}, func(ctx context.Context, n Notification) {
			_ = engine.deliver(ctx, n)
		})
	}

	b.built = true

	return engine, nil
}
