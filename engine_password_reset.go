package goAccount

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
)

// IssueReset describes the issuereset operation and its observable behavior.
//
// IssueReset stores the digest of a new reset token on the account
// registered under email and sends {baseURL}/reset-password/{token}. For an
// unknown email it waits a random delay and returns a result of the same
// shape with a nil error, sending nothing.
func (e *Engine) IssueReset(ctx context.Context, email string) (*IssueResult, error) {
	issued, err := internalflows.RunRequestPasswordReset(ctx, email, e.passwordResetFlowDeps())
	return issueResult(issued), err
}

// ConsumeReset describes the consumereset operation and its observable behavior.
//
// ConsumeReset replaces the password of the account holding an active reset
// token and clears the token. It returns ErrInvalidCredential for a
// password that fails policy and ErrInvalidOrExpiredToken when no active
// token matches. Checking that newPassword equals its confirmation copy is
// left to the caller.
func (e *Engine) ConsumeReset(ctx context.Context, rawToken, newPassword string) error {
	_, err := internalflows.RunConfirmPasswordReset(ctx, rawToken, newPassword, e.passwordResetFlowDeps())
	return err
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	var cfg Config
	if e != nil {
		cfg = e.config
	}

	deps := internalflows.PasswordResetDeps{
		TokenTTL:          cfg.PasswordReset.TokenTTL,
		MinPasswordLength: cfg.Password.MinLength,
		MaxPasswordBytes:  cfg.Password.MaxBytes,
		NewToken:          newTokenPair,
		DigestToken:       internal.DigestToken,
		WellFormedToken:   internal.WellFormedToken,
		SleepEnumerationDelay: func(ctx context.Context) error {
			return sleepPasswordResetEnumerationDelay(ctx, cfg.PasswordReset.EnumerationDelayMin, cfg.PasswordReset.EnumerationDelayMax)
		},
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:      int(MetricPasswordResetRequest),
			PasswordResetUnknownEmail: int(MetricPasswordResetUnknownEmail),
			PasswordResetSuccess:      int(MetricPasswordResetSuccess),
			PasswordResetFailure:      int(MetricPasswordResetFailure),
		},
		Events: internalflows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
		},
		Errors: internalflows.PasswordResetErrors{
			EngineNotReady:    ErrEngineNotReady,
			Validation:        ErrValidation,
			InvalidCredential: ErrInvalidCredential,
			InvalidOrExpired:  ErrInvalidOrExpiredToken,
			TokenGeneration:   ErrTokenGeneration,
		},
	}

	if e == nil || e.store == nil || e.hasher == nil {
		return deps
	}

	deps.Now = e.now
	deps.HashPassword = e.hashPassword
	deps.BuildLink = e.linkBuilder(cfg.Links.PasswordResetPath)
	deps.Dispatch = e.dispatcher(KindPasswordReset)
	deps.FindByEmail = e.store.FindByEmail
	deps.FindByResetDigest = e.store.FindByResetDigest
	deps.SetResetToken = e.store.SetResetToken
	deps.ConsumeReset = e.store.ConsumeReset
	deps.MapStoreError = e.mapStoreError
	deps.MetricInc = func(id int) { e.metricInc(MetricID(id)) }
	deps.EmitAudit = e.emitAudit

	return deps
}

func sleepPasswordResetEnumerationDelay(ctx context.Context, minDelay, maxDelay time.Duration) error {
	delay, err := internal.RandomDelay(minDelay, maxDelay)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
