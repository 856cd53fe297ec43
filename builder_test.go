package goAccount

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goAccount/store/memory"
)

func TestBuilderRequiresStoreAndNotifier(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).WithNotifier(&recordingNotifier{}).Build(); err == nil || !strings.Contains(err.Error(), "store") {
		t.Fatalf("expected missing store error, got %v", err)
	}
	if _, err := New().WithConfig(testConfig()).WithStore(memory.New()).Build(); err == nil || !strings.Contains(err.Error(), "notifier") {
		t.Fatalf("expected missing notifier error, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithStore(memory.New()).WithNotifier(&recordingNotifier{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Links.BaseURL = ""

	_, err := New().WithConfig(cfg).WithStore(memory.New()).WithNotifier(&recordingNotifier{}).Build()
	if err == nil {
		t.Fatal("expected Build to reject a config without BaseURL")
	}
}

func TestMissingBaseURLFailsBeforeWrite(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Links.BaseURL = ""
		cfg.Links.AllowMissingBaseURL = true
	})
	ctx := context.Background()

	_, err := env.engine.Register(ctx, RegisterRequest{Username: "nova", Email: "nova@x.com", Password: "Secret#123"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without a base URL, got %v", err)
	}
	if _, err := env.store.FindByEmail(ctx, "nova@x.com"); err == nil {
		t.Fatal("expected nothing to be written")
	}

	res, err := env.engine.Register(WithBaseURL(ctx, "https://tenant.test/"), RegisterRequest{Username: "nova", Email: "nova@x.com", Password: "Secret#123"})
	if err != nil {
		t.Fatalf("Register with request base URL failed: %v", err)
	}
	if res.Link != "https://tenant.test/confirm/"+res.RawToken {
		t.Fatalf("unexpected link %q", res.Link)
	}
}

func TestMetricsToggles(t *testing.T) {
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(memory.New()).
		WithNotifier(&recordingNotifier{}).
		WithMetricsEnabled(false).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.IssueReset(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("IssueReset failed: %v", err)
	}
	if got := len(engine.MetricsSnapshot().Counters); got != 0 {
		t.Fatalf("expected no counters with metrics disabled, got %d", got)
	}
}
