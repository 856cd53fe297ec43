package goAccount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var errSMTPDown = errors.New("smtp: connection refused")

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []Notification
	fail  error
	block chan struct{}
}

func (n *recordingNotifier) Notify(ctx context.Context, note Notification) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *recordingNotifier) Last(t *testing.T) Notification {
	t.Helper()

	sent := n.Sent()
	if len(sent) == 0 {
		t.Fatal("expected at least one notification")
	}
	return sent[len(sent)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testConfig keeps argon2 cheap and removes the enumeration delay.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.EnumerationDelayMin = 0
	cfg.PasswordReset.EnumerationDelayMax = 0
	cfg.Links.BaseURL = "https://app.test"
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine   *Engine
	store    store.Store
	notifier *recordingNotifier
	clock    *testClock
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.New(), mutate)
}

func newTestEnvWithStore(t *testing.T, s store.Store, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		store:    s,
		notifier: &recordingNotifier{},
		clock:    newTestClock(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithStore(s).
		WithNotifier(env.notifier).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

func (env *testEnv) register(t *testing.T, username, email string) *IssueResult {
	t.Helper()

	res, err := env.engine.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    email,
		Password: "Secret#123",
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	return res
}

func (env *testEnv) storedAccount(t *testing.T, email string) *store.Account {
	t.Helper()

	acc, err := env.store.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail(%s) failed: %v", email, err)
	}
	return acc
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()

	h, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}
