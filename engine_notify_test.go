package goAccount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAsyncNotificationsDrainOnClose(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Notification.Async = true
		cfg.Notification.Workers = 2
		cfg.Notification.DropIfFull = false
	})

	for _, name := range []string{"a", "b", "c"} {
		env.register(t, name, name+"@x.com")
	}
	env.engine.Close()

	if got := len(env.notifier.Sent()); got != 3 {
		t.Fatalf("expected 3 notifications after Close, got %d", got)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricDeliverySuccess]; got != 3 {
		t.Fatalf("expected delivery_success 3, got %d", got)
	}
}

func TestAsyncNotificationDroppedWhenQueueFull(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}

	var (
		mu     sync.Mutex
		failed []Notification
	)
	cfg := testConfig()
	cfg.Notification.Async = true
	cfg.Notification.Workers = 1
	cfg.Notification.BufferSize = 1
	cfg.Notification.DropIfFull = true

	engine, err := New().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithNotifier(notifier).
		WithDeliveryFailureHook(func(n Notification, err error) {
			if !errors.Is(err, ErrDeliveryFailed) {
				t.Errorf("expected ErrDeliveryFailed in hook, got %v", err)
			}
			mu.Lock()
			failed = append(failed, n)
			mu.Unlock()
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	register := func(name string) error {
		_, err := engine.Register(ctx, RegisterRequest{Username: name, Email: name + "@x.com", Password: "Secret#123"})
		return err
	}

	// The worker blocks on the first item and the buffer holds one more.
	if err := register("one"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	var dropErr error
	for i := 0; i < 5 && dropErr == nil; i++ {
		dropErr = register(fmt.Sprintf("extra%d", i))
	}
	if !errors.Is(dropErr, ErrDeliveryFailed) {
		t.Fatalf("expected a full queue to surface ErrDeliveryFailed, got %v", dropErr)
	}
	if engine.NotificationsDropped() == 0 {
		t.Fatal("expected dropped notification count to be recorded")
	}

	close(notifier.block)
	engine.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(failed) == 0 {
		t.Fatal("expected delivery failure hook to fire")
	}
}

func TestDeliveryFailureIsLoggedAndHooked(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	notifier := &recordingNotifier{fail: errSMTPDown}

	var hooked []Notification
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(memory.New()).
		WithNotifier(notifier).
		WithLogger(zap.New(core)).
		WithDeliveryFailureHook(func(n Notification, err error) {
			hooked = append(hooked, n)
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	_, err = engine.Register(context.Background(), RegisterRequest{Username: "nova", Email: "nova@x.com", Password: "Secret#123"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	if len(hooked) != 1 || hooked[0].Kind != KindConfirmation || hooked[0].Recipient != "nova@x.com" {
		t.Fatalf("unexpected hook calls %+v", hooked)
	}

	entries := logs.FilterMessage("notification delivery failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log, got %d", len(entries))
	}
	if entries[0].LoggerName != "goaccount" {
		t.Fatalf("expected logger name goaccount, got %q", entries[0].LoggerName)
	}
	if got := entries[0].ContextMap()["kind"]; got != string(KindConfirmation) {
		t.Fatalf("expected kind field, got %v", got)
	}
}

func TestNotificationTimeoutApplied(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Notification.Timeout = 10 * time.Millisecond
	})
	env.notifier.block = make(chan struct{})
	defer close(env.notifier.block)

	_, err := env.engine.Register(context.Background(), RegisterRequest{Username: "nova", Email: "nova@x.com", Password: "Secret#123"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected timed out delivery to fail, got %v", err)
	}
	env.storedAccount(t, "nova@x.com")
}
