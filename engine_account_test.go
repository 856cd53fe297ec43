package goAccount

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/store"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterCreatesUnconfirmedAccountAndSendsConfirmation(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.register(t, "nova", "Nova@X.com ")

	if !internal.WellFormedToken(res.RawToken) {
		t.Fatalf("expected a 64-char hex token, got %q", res.RawToken)
	}
	if want := env.clock.Now().Add(24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	acc := env.storedAccount(t, "nova@x.com")
	if acc.Confirmed {
		t.Fatal("expected unconfirmed account")
	}
	if acc.Role != "user" {
		t.Fatalf("expected default role user, got %q", acc.Role)
	}
	if acc.Confirmation == nil || acc.Confirmation.Key != internal.DigestToken(res.RawToken) {
		t.Fatal("expected stored confirmation digest of the issued token")
	}
	if acc.PasswordHash == "Secret#123" || !strings.HasPrefix(acc.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", acc.PasswordHash)
	}

	n := env.notifier.Last(t)
	if n.Kind != KindConfirmation || n.Recipient != "nova@x.com" || n.Username != "nova" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Link != "https://app.test/confirm/"+res.RawToken {
		t.Fatalf("unexpected link %q", n.Link)
	}
}

func TestRegisterRejectsDuplicateHandleOrEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "nova", "nova@x.com")

	cases := []RegisterRequest{
		{Username: "nova", Email: "other@x.com", Password: "Secret#123"},
		{Username: "other", Email: "NOVA@x.com", Password: "Secret#123"},
	}
	for _, req := range cases {
		if _, err := env.engine.Register(context.Background(), req); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for %+v, got %v", req, err)
		}
	}
	if got := len(env.notifier.Sent()); got != 1 {
		t.Fatalf("expected only the first registration to notify, got %d", got)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRegisterDuplicate]; got != 2 {
		t.Fatalf("expected 2 duplicate registrations counted, got %d", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"missing username", RegisterRequest{Email: "a@x.com", Password: "Secret#123"}, ErrValidation},
		{"username with at", RegisterRequest{Username: "a@b", Email: "a@x.com", Password: "Secret#123"}, ErrValidation},
		{"missing email", RegisterRequest{Username: "a", Password: "Secret#123"}, ErrValidation},
		{"malformed email", RegisterRequest{Username: "a", Email: "not-an-email", Password: "Secret#123"}, ErrValidation},
		{"display name email", RegisterRequest{Username: "a", Email: "A <a@x.com>", Password: "Secret#123"}, ErrValidation},
		{"empty password", RegisterRequest{Username: "a", Email: "a@x.com"}, ErrInvalidCredential},
		{"short password", RegisterRequest{Username: "a", Email: "a@x.com", Password: "short"}, ErrInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Register(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(env.notifier.Sent()) != 0 {
		t.Fatal("expected no notifications for rejected registrations")
	}
}

func TestRegisterDeliveryFailureKeepsAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	env.notifier.fail = errSMTPDown

	res, err := env.engine.Register(context.Background(), RegisterRequest{
		Username: "nova",
		Email:    "nova@x.com",
		Password: "Secret#123",
	})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if res == nil || res.RawToken == "" {
		t.Fatal("expected committed result alongside the delivery error")
	}

	env.notifier.fail = nil
	if _, err := env.engine.ConsumeConfirmation(context.Background(), res.RawToken); err != nil {
		t.Fatalf("expected token from failed delivery to stay valid, got %v", err)
	}
}

func TestRegisterUsesRequestBaseURL(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Links.BaseURL = ""
		cfg.Links.AllowMissingBaseURL = true
	})

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		Username: "nova", Email: "nova@x.com", Password: "Secret#123",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without any base URL, got %v", err)
	}
	if _, err := env.store.FindByEmail(context.Background(), "nova@x.com"); err == nil {
		t.Fatal("expected nothing written when the link cannot be built")
	}

	ctx := WithBaseURL(context.Background(), "http://localhost:3000/")
	res, err := env.engine.Register(ctx, RegisterRequest{
		Username: "nova", Email: "nova@x.com", Password: "Secret#123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Link != "http://localhost:3000/confirm/"+res.RawToken {
		t.Fatalf("unexpected link %q", res.Link)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.register(t, "nova", "nova@x.com")

	if _, err := env.engine.Authenticate(ctx, "nova", "Secret#123"); !errors.Is(err, ErrAccountUnconfirmed) {
		t.Fatalf("expected ErrAccountUnconfirmed before confirmation, got %v", err)
	}
	if _, err := env.engine.ConsumeConfirmation(ctx, res.RawToken); err != nil {
		t.Fatalf("ConsumeConfirmation failed: %v", err)
	}

	acc, err := env.engine.Authenticate(ctx, "nova", "Secret#123")
	if err != nil {
		t.Fatalf("Authenticate by handle failed: %v", err)
	}
	if acc.Email != "nova@x.com" || !acc.Confirmed || acc.VerificationState != "confirmed" {
		t.Fatalf("unexpected account %+v", acc)
	}
	if _, err := env.engine.Authenticate(ctx, " NOVA@x.com", "Secret#123"); err != nil {
		t.Fatalf("Authenticate by email failed: %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, "nova", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "ghost", "Secret#123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown handle, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "nova", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 2 || snap.Counters[MetricLoginFailure] != 4 {
		t.Fatalf("unexpected login counters %+v", snap.Counters)
	}
}

func TestAuthenticateUnconfirmedAllowedWhenNotRequired(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Account.RequireConfirmedForLogin = false
	})
	env.register(t, "nova", "nova@x.com")

	acc, err := env.engine.Authenticate(context.Background(), "nova", "Secret#123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if acc.Confirmed || acc.VerificationState != "pending_confirmation" {
		t.Fatalf("unexpected account %+v", acc)
	}
}

func TestAuthenticateUpgradesLegacyBcryptHash(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("Secret#123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	now := env.clock.Now()
	if err := env.store.Insert(ctx, &store.Account{
		ID: "legacy-1", Username: "old", Email: "old@x.com",
		PasswordHash: string(legacy), Role: "user", Confirmed: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, "old", "Secret#123"); err != nil {
		t.Fatalf("Authenticate with bcrypt hash failed: %v", err)
	}

	acc := env.storedAccount(t, "old@x.com")
	if !strings.HasPrefix(acc.PasswordHash, "$argon2id$") {
		t.Fatalf("expected hash upgraded to argon2id, got %q", acc.PasswordHash)
	}
	if _, err := env.engine.Authenticate(ctx, "old", "Secret#123"); err != nil {
		t.Fatalf("Authenticate after upgrade failed: %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordHashUpgraded]; got != 1 {
		t.Fatalf("expected one upgrade, got %d", got)
	}
}

func TestFindAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.register(t, "nova", "nova@x.com")

	acc, err := env.engine.FindAccount(context.Background(), "  NOVA@x.com ")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if acc.ID != res.AccountID || acc.Username != "nova" {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if acc.Confirmed || acc.VerificationState != "pending_confirmation" {
		t.Fatalf("expected pending confirmation, got %+v", acc)
	}
	if acc.ResetState != "no_reset_pending" {
		t.Fatalf("expected no reset pending, got %q", acc.ResetState)
	}

	env.clock.Advance(25 * time.Hour)
	acc, err = env.engine.FindAccount(context.Background(), "nova@x.com")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if acc.VerificationState != "unverified" {
		t.Fatalf("expected unverified after expiry, got %q", acc.VerificationState)
	}

	if _, err := env.engine.FindAccount(context.Background(), "ghost@x.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
