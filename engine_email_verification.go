package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
)

// IssueConfirmation describes the issueconfirmation operation and its observable behavior.
//
// IssueConfirmation replaces the confirmation token of the unconfirmed
// account registered under email, so any earlier link stops working, and
// sends {baseURL}/confirm/{token}. It returns ErrAccountNotFound for unknown
// emails and ErrAlreadyConfirmed for confirmed accounts. A delivery failure
// returns the committed result together with ErrDeliveryFailed.
func (e *Engine) IssueConfirmation(ctx context.Context, email string) (*IssueResult, error) {
	issued, err := internalflows.RunIssueConfirmation(ctx, email, e.confirmationFlowDeps())
	return issueResult(issued), err
}

// ConsumeConfirmation describes the consumeconfirmation operation and its observable behavior.
//
// ConsumeConfirmation confirms the account holding rawToken in a single
// conditional store update, so concurrent calls with one token succeed at
// most once. Every failure to match returns ErrInvalidOrExpiredToken.
func (e *Engine) ConsumeConfirmation(ctx context.Context, rawToken string) (*Account, error) {
	acc, err := internalflows.RunConsumeConfirmation(ctx, rawToken, e.confirmationFlowDeps())
	if err != nil {
		return nil, err
	}
	return e.publicAccount(acc), nil
}

func (e *Engine) confirmationFlowDeps() internalflows.ConfirmationDeps {
	var cfg Config
	if e != nil {
		cfg = e.config
	}

	deps := internalflows.ConfirmationDeps{
		TokenTTL:              cfg.Confirmation.TokenTTL,
		LegacyPlaintextTokens: cfg.Confirmation.LegacyPlaintextTokens,
		NewToken:              newTokenPair,
		DigestToken:           internal.DigestToken,
		WellFormedToken:       internal.WellFormedToken,
		Metrics: internalflows.ConfirmationMetrics{
			ConfirmationIssued:  int(MetricConfirmationIssued),
			ConfirmationSuccess: int(MetricConfirmationSuccess),
			ConfirmationFailure: int(MetricConfirmationFailure),
		},
		Events: internalflows.ConfirmationEvents{
			ConfirmationIssued:   auditEventConfirmationIssued,
			ConfirmationConsumed: auditEventConfirmationConsumed,
		},
		Errors: internalflows.ConfirmationErrors{
			EngineNotReady:   ErrEngineNotReady,
			Validation:       ErrValidation,
			AccountNotFound:  ErrAccountNotFound,
			AlreadyConfirmed: ErrAlreadyConfirmed,
			InvalidOrExpired: ErrInvalidOrExpiredToken,
			TokenGeneration:  ErrTokenGeneration,
		},
	}

	if e == nil || e.store == nil {
		return deps
	}

	deps.Now = e.now
	deps.BuildLink = e.linkBuilder(cfg.Links.ConfirmPath)
	deps.Dispatch = e.dispatcher(KindConfirmation)
	deps.FindByEmail = e.store.FindByEmail
	deps.SetConfirmationToken = e.store.SetConfirmationToken
	deps.ConsumeConfirmation = e.store.ConsumeConfirmation
	deps.MapStoreError = e.mapStoreError
	deps.MetricInc = func(id int) { e.metricInc(MetricID(id)) }
	deps.EmitAudit = e.emitAudit

	return deps
}
