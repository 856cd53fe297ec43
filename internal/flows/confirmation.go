package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

type ConfirmationMetrics struct {
	ConfirmationIssued  int
	ConfirmationSuccess int
	ConfirmationFailure int
}

type ConfirmationEvents struct {
	ConfirmationIssued   string
	ConfirmationConsumed string
}

type ConfirmationErrors struct {
	EngineNotReady   error
	Validation       error
	AccountNotFound  error
	AlreadyConfirmed error
	InvalidOrExpired error
	TokenGeneration  error
}

type ConfirmationDeps struct {
	TokenTTL              time.Duration
	LegacyPlaintextTokens bool

	Now             func() time.Time
	NewToken        func() (string, string, error)
	DigestToken     func(string) string
	WellFormedToken func(string) bool
	BuildLink       func(context.Context, string) (string, error)
	Dispatch        func(context.Context, Delivery) error

	FindByEmail          func(context.Context, string) (*store.Account, error)
	SetConfirmationToken func(context.Context, string, store.Token, time.Time) error
	ConsumeConfirmation  func(context.Context, string, time.Time) (*store.Account, error)
	MapStoreError        func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ConfirmationMetrics
	Events  ConfirmationEvents
	Errors  ConfirmationErrors
}

// RunIssueConfirmation replaces the confirmation token of the unconfirmed
// account registered under email and dispatches the new link.
func RunIssueConfirmation(ctx context.Context, email string, deps ConfirmationDeps) (*Issued, error) {
	normalizeConfirmationDeps(&deps)

	if deps.NewToken == nil || deps.BuildLink == nil || deps.Dispatch == nil ||
		deps.FindByEmail == nil || deps.SetConfirmationToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(accountID string, err error, reason string) (*Issued, error) {
		deps.EmitAudit(ctx, deps.Events.ConfirmationIssued, false, accountID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	email = store.NormalizeEmail(email)
	if email == "" {
		return fail("", fmt.Errorf("%w: email is required", deps.Errors.Validation), "empty_email")
	}

	account, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("", deps.Errors.AccountNotFound, "unknown_email")
		}
		return fail("", deps.MapStoreError(err), "lookup_failed")
	}
	if account.Confirmed {
		return fail(account.ID, deps.Errors.AlreadyConfirmed, "already_confirmed")
	}

	raw, digest, err := deps.NewToken()
	if err != nil {
		return fail(account.ID, fmt.Errorf("%w: %v", deps.Errors.TokenGeneration, err), "token_generation")
	}
	link, err := deps.BuildLink(ctx, raw)
	if err != nil {
		return fail(account.ID, err, "link")
	}

	key := digest
	if deps.LegacyPlaintextTokens {
		key = raw
	}

	now := deps.Now()
	token := store.Token{Key: key, ExpiresAt: now.Add(deps.TokenTTL)}
	if err := deps.SetConfirmationToken(ctx, account.ID, token, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Confirmed between the lookup and the write.
			return fail(account.ID, deps.Errors.AlreadyConfirmed, "already_confirmed")
		}
		return fail(account.ID, deps.MapStoreError(err), "store_failed")
	}

	deps.MetricInc(deps.Metrics.ConfirmationIssued)
	deps.EmitAudit(ctx, deps.Events.ConfirmationIssued, true, account.ID, nil, nil)

	issued := &Issued{
		AccountID: account.ID,
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

// RunConsumeConfirmation confirms the account holding rawToken. Unknown,
// expired, replayed, and malformed tokens all fail with InvalidOrExpired and
// leave every record unchanged.
func RunConsumeConfirmation(ctx context.Context, rawToken string, deps ConfirmationDeps) (*store.Account, error) {
	normalizeConfirmationDeps(&deps)

	if deps.ConsumeConfirmation == nil || deps.DigestToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(err error, reason string) (*store.Account, error) {
		deps.MetricInc(deps.Metrics.ConfirmationFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmationConsumed, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	if !deps.WellFormedToken(rawToken) {
		return fail(deps.Errors.InvalidOrExpired, "malformed")
	}

	key := deps.DigestToken(rawToken)
	if deps.LegacyPlaintextTokens {
		key = rawToken
	}

	account, err := deps.ConsumeConfirmation(ctx, key, deps.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(deps.Errors.InvalidOrExpired, "no_active_match")
		}
		return fail(deps.MapStoreError(err), "store_failed")
	}

	deps.MetricInc(deps.Metrics.ConfirmationSuccess)
	deps.EmitAudit(ctx, deps.Events.ConfirmationConsumed, true, account.ID, nil, nil)
	return account, nil
}

func normalizeConfirmationDeps(deps *ConfirmationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.WellFormedToken == nil {
		deps.WellFormedToken = func(raw string) bool { return raw != "" }
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
