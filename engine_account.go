package goAccount

import (
	"context"

	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register describes the register operation and its observable behavior.
//
// Register creates an unconfirmed account with a fresh confirmation token
// and sends the confirmation link to req.Email. It returns ErrValidation,
// ErrInvalidCredential, or ErrConflict before anything is written. When only
// delivery fails the account exists and Register returns both the result
// and an error wrapping ErrDeliveryFailed.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*IssueResult, error) {
	issued, err := internalflows.RunRegister(ctx, internalflows.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, e.accountFlowDeps())
	return issueResult(issued), err
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate verifies a username or email and password. Unknown
// identifiers and wrong passwords both return ErrInvalidCredentials; an
// unconfirmed account returns ErrAccountUnconfirmed when
// Config.Account.RequireConfirmedForLogin is set. Legacy hashes are
// upgraded on success when Config.Password.UpgradeOnLogin is set.
func (e *Engine) Authenticate(ctx context.Context, identifier, password string) (*Account, error) {
	acc, err := internalflows.RunAuthenticate(ctx, identifier, password, e.loginFlowDeps())
	if err != nil {
		return nil, err
	}
	return e.publicAccount(acc), nil
}

func (e *Engine) accountFlowDeps() internalflows.AccountDeps {
	var cfg Config
	if e != nil {
		cfg = e.config
	}

	deps := internalflows.AccountDeps{
		DefaultRole:           cfg.Account.DefaultRole,
		MinPasswordLength:     cfg.Password.MinLength,
		MaxPasswordBytes:      cfg.Password.MaxBytes,
		MaxUsernameLength:     cfg.Account.MaxUsernameLength,
		ConfirmationTTL:       cfg.Confirmation.TokenTTL,
		LegacyPlaintextTokens: cfg.Confirmation.LegacyPlaintextTokens,
		NewID:                 uuid.NewString,
		NewToken:              newTokenPair,
		Metrics: internalflows.AccountMetrics{
			RegisterSuccess:   int(MetricRegisterSuccess),
			RegisterDuplicate: int(MetricRegisterDuplicate),
			RegisterFailure:   int(MetricRegisterFailure),
		},
		Events: internalflows.AccountEvents{
			RegisterSuccess:   auditEventRegisterSuccess,
			RegisterFailure:   auditEventRegisterFailure,
			RegisterDuplicate: auditEventRegisterDuplicate,
		},
		Errors: internalflows.AccountErrors{
			EngineNotReady:    ErrEngineNotReady,
			Validation:        ErrValidation,
			InvalidCredential: ErrInvalidCredential,
			Conflict:          ErrConflict,
			TokenGeneration:   ErrTokenGeneration,
		},
	}

	if e == nil || e.store == nil || e.hasher == nil {
		return deps
	}

	deps.Now = e.now
	deps.HashPassword = e.hashPassword
	deps.BuildLink = e.linkBuilder(cfg.Links.ConfirmPath)
	deps.Dispatch = e.dispatcher(KindConfirmation)
	deps.FindByHandleOrEmail = e.store.FindByHandleOrEmail
	deps.Insert = e.store.Insert
	deps.MapStoreError = e.mapStoreError
	deps.MetricInc = func(id int) { e.metricInc(MetricID(id)) }
	deps.EmitAudit = e.emitAudit

	return deps
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	var cfg Config
	if e != nil {
		cfg = e.config
	}

	deps := internalflows.LoginDeps{
		RequireConfirmed: cfg.Account.RequireConfirmedForLogin,
		UpgradeOnLogin:   cfg.Password.UpgradeOnLogin,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:         int(MetricLoginSuccess),
			LoginFailure:         int(MetricLoginFailure),
			PasswordHashUpgraded: int(MetricPasswordHashUpgraded),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:         auditEventLoginSuccess,
			LoginFailure:         auditEventLoginFailure,
			PasswordHashUpgraded: auditEventPasswordHashUpgraded,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountUnconfirmed: ErrAccountUnconfirmed,
		},
	}

	if e == nil || e.store == nil || e.hasher == nil {
		return deps
	}

	deps.Now = e.now
	deps.VerifyPassword = e.hasher.Verify
	deps.DummyVerify = e.hasher.DummyVerify
	deps.NeedsUpgrade = e.hasher.NeedsUpgrade
	deps.HashPassword = e.hashPassword
	deps.FindByHandleOrEmail = e.store.FindByHandleOrEmail
	deps.UpdatePasswordHash = e.store.UpdatePasswordHash
	deps.MapStoreError = e.mapStoreError
	deps.OnUpgradeFailure = func(accountID string, err error) {
		e.logger.Warn("password hash upgrade failed", zap.String("account_id", accountID), zap.Error(err))
	}
	deps.MetricInc = func(id int) { e.metricInc(MetricID(id)) }
	deps.EmitAudit = e.emitAudit

	return deps
}

func issueResult(issued *internalflows.Issued) *IssueResult {
	if issued == nil {
		return nil
	}
	return &IssueResult{
		AccountID: issued.AccountID,
		RawToken:  issued.RawToken,
		Link:      issued.Link,
		ExpiresAt: issued.ExpiresAt,
	}
}
