package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

type PasswordResetMetrics struct {
	PasswordResetRequest      int
	PasswordResetUnknownEmail int
	PasswordResetSuccess      int
	PasswordResetFailure      int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
}

type PasswordResetErrors struct {
	EngineNotReady    error
	Validation        error
	InvalidCredential error
	InvalidOrExpired  error
	TokenGeneration   error
}

type PasswordResetDeps struct {
	TokenTTL          time.Duration
	MinPasswordLength int
	MaxPasswordBytes  int

	Now                   func() time.Time
	NewToken              func() (string, string, error)
	DigestToken           func(string) string
	WellFormedToken       func(string) bool
	HashPassword          func(string) (string, error)
	BuildLink             func(context.Context, string) (string, error)
	Dispatch              func(context.Context, Delivery) error
	SleepEnumerationDelay func(context.Context) error

	FindByEmail       func(context.Context, string) (*store.Account, error)
	FindByResetDigest func(context.Context, string, time.Time) (*store.Account, error)
	SetResetToken     func(context.Context, string, store.Token, time.Time) error
	ConsumeReset      func(context.Context, string, string, time.Time) (*store.Account, error)
	MapStoreError     func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset stores the digest of a fresh reset token on the
// account registered under email and dispatches the reset link.
//
// Unknown emails are indistinguishable to the caller: after a random delay a
// throwaway token of the same shape is returned with a nil error and nothing
// is sent. Results never carry the account ID.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) (*Issued, error) {
	normalizePasswordResetDeps(&deps)

	if deps.NewToken == nil || deps.BuildLink == nil || deps.Dispatch == nil ||
		deps.FindByEmail == nil || deps.SetResetToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = store.NormalizeEmail(email)
	if email == "" {
		err := fmt.Errorf("%w: email is required", deps.Errors.Validation)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": "empty_email",
			}
		})
		return nil, err
	}

	account, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		if !errors.Is(err, store.ErrNotFound) {
			mapped := deps.MapStoreError(err)
			deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", mapped, nil)
			return nil, mapped
		}
		if sleepErr := deps.SleepEnumerationDelay(ctx); sleepErr != nil {
			return nil, sleepErr
		}
		return requestPasswordResetUnknown(ctx, deps)
	}

	raw, digest, err := deps.NewToken()
	if err != nil {
		mapped := fmt.Errorf("%w: %v", deps.Errors.TokenGeneration, err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, mapped, nil)
		return nil, mapped
	}
	link, err := deps.BuildLink(ctx, raw)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, err, nil)
		return nil, err
	}

	now := deps.Now()
	token := store.Token{Key: digest, ExpiresAt: now.Add(deps.TokenTTL)}
	if err := deps.SetResetToken(ctx, account.ID, token, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted since the lookup; answer as for an unknown email.
			return requestPasswordResetUnknown(ctx, deps)
		}
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, mapped, nil)
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, account.ID, nil, nil)

	issued := &Issued{
		RawToken:  raw,
		Link:      link,
		ExpiresAt: token.ExpiresAt,
	}
	dispatchErr := deps.Dispatch(ctx, Delivery{
		AccountID: account.ID,
		Recipient: account.Email,
		Username:  account.Username,
		Link:      link,
		ExpiresAt: token.ExpiresAt,
	})
	return issued, dispatchErr
}

func requestPasswordResetUnknown(ctx context.Context, deps PasswordResetDeps) (*Issued, error) {
	raw, _, err := deps.NewToken()
	if err != nil {
		mapped := fmt.Errorf("%w: %v", deps.Errors.TokenGeneration, err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", mapped, func() map[string]string {
			return map[string]string{
				"reason": "fake_generation_failed",
			}
		})
		return nil, mapped
	}
	link, err := deps.BuildLink(ctx, raw)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.MetricInc(deps.Metrics.PasswordResetUnknownEmail)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", nil, func() map[string]string {
		return map[string]string{
			"enumeration_safe": "true",
		}
	})
	return &Issued{
		RawToken:  raw,
		Link:      link,
		ExpiresAt: deps.Now().Add(deps.TokenTTL),
	}, nil
}

// RunConfirmPasswordReset replaces the password of the account holding an
// active reset token and clears the token in the same write.
func RunConfirmPasswordReset(ctx context.Context, rawToken, newPassword string, deps PasswordResetDeps) (*store.Account, error) {
	normalizePasswordResetDeps(&deps)

	if deps.DigestToken == nil || deps.HashPassword == nil ||
		deps.FindByResetDigest == nil || deps.ConsumeReset == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(accountID string, err error, reason string) (*store.Account, error) {
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, accountID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	if !validPassword(newPassword, deps.MinPasswordLength, deps.MaxPasswordBytes) {
		return fail("", deps.Errors.InvalidCredential, "password_policy")
	}
	if !deps.WellFormedToken(rawToken) {
		return fail("", deps.Errors.InvalidOrExpired, "malformed")
	}

	digest := deps.DigestToken(rawToken)

	// Checked before hashing so bogus tokens cost no hash work.
	pending, err := deps.FindByResetDigest(ctx, digest, deps.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("", deps.Errors.InvalidOrExpired, "no_active_match")
		}
		return fail("", deps.MapStoreError(err), "lookup_failed")
	}

	passwordHash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(pending.ID, err, "hash_failed")
	}

	account, err := deps.ConsumeReset(ctx, digest, passwordHash, deps.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(pending.ID, deps.Errors.InvalidOrExpired, "consumed_or_expired")
		}
		return fail(pending.ID, deps.MapStoreError(err), "store_failed")
	}

	deps.MetricInc(deps.Metrics.PasswordResetSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, account.ID, nil, nil)
	return account, nil
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.WellFormedToken == nil {
		deps.WellFormedToken = func(raw string) bool { return raw != "" }
	}
	if deps.SleepEnumerationDelay == nil {
		deps.SleepEnumerationDelay = func(context.Context) error { return nil }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopAudit
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
}
