package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type AccountMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterFailure   int
}

type AccountEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

type AccountErrors struct {
	EngineNotReady    error
	Validation        error
	InvalidCredential error
	Conflict          error
	TokenGeneration   error
}

type AccountDeps struct {
	DefaultRole           string
	MinPasswordLength     int
	MaxPasswordBytes      int
	MaxUsernameLength     int
	ConfirmationTTL       time.Duration
	LegacyPlaintextTokens bool

	Now          func() time.Time
	NewID        func() string
	NewToken     func() (string, string, error)
	HashPassword func(string) (string, error)
	BuildLink    func(context.Context, string) (string, error)
	Dispatch     func(context.Context, Delivery) error

	FindByHandleOrEmail func(context.Context, string, string) (*store.Account, error)
	Insert              func(context.Context, *store.Account) error
	MapStoreError       func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

// RunRegister validates and normalizes in, rejects taken handles and emails,
// and inserts an unconfirmed account carrying a fresh confirmation token.
// The confirmation link is dispatched after the insert commits; a dispatch
// error is returned alongside the non-nil result.
func RunRegister(ctx context.Context, in RegisterInput, deps AccountDeps) (*Issued, error) {
	normalizeAccountDeps(&deps)

	if deps.NewID == nil || deps.NewToken == nil || deps.HashPassword == nil ||
		deps.BuildLink == nil || deps.Dispatch == nil ||
		deps.FindByHandleOrEmail == nil || deps.Insert == nil {
		return nil, deps.Errors.EngineNotReady
	}

	username := store.NormalizeUsername(in.Username)
	email := store.NormalizeEmail(in.Email)
	fail := func(err error, reason string) (*Issued, error) {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	if !validUsername(username, deps.MaxUsernameLength) {
		return fail(fmt.Errorf("%w: username is missing or malformed", deps.Errors.Validation), "invalid_username")
	}
	if !validEmail(email) {
		return fail(fmt.Errorf("%w: email is missing or malformed", deps.Errors.Validation), "invalid_email")
	}
	if !validPassword(in.Password, deps.MinPasswordLength, deps.MaxPasswordBytes) {
		return fail(deps.Errors.InvalidCredential, "password_policy")
	}

	role := in.Role
	if role == "" {
		role = deps.DefaultRole
	}

	if _, err := deps.FindByHandleOrEmail(ctx, username, email); err == nil {
		return registerDuplicate(ctx, deps)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fail(deps.MapStoreError(err), "lookup_failed")
	}

	passwordHash, err := deps.HashPassword(in.Password)
	if err != nil {
		return fail(err, "hash_failed")
	}

	raw, digest, err := deps.NewToken()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", deps.Errors.TokenGeneration, err), "token_generation")
	}
	link, err := deps.BuildLink(ctx, raw)
	if err != nil {
		return fail(err, "link")
	}

	key := digest
	if deps.LegacyPlaintextTokens {
		key = raw
	}

	now := deps.Now()
	account := &store.Account{
		ID:           deps.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Confirmation: &store.Token{Key: key, ExpiresAt: now.Add(deps.ConfirmationTTL)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.Insert(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return registerDuplicate(ctx, deps)
		}
		return fail(deps.MapStoreError(err), "insert_failed")
	}

	issued := &Issued{
		AccountID: account.ID,
		RawToken:  raw,
		Link:      link,
		ExpiresAt: account.Confirmation.ExpiresAt,
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, account.ID, nil, func() map[string]string {
		return map[string]string{
			"role": role,
		}
	})

	dispatchErr := deps.Dispatch(ctx, Delivery{
		AccountID: account.ID,
		Recipient: account.Email,
		Username:  account.Username,
		Link:      link,
		ExpiresAt: issued.ExpiresAt,
	})
	return issued, dispatchErr
}

func registerDuplicate(ctx context.Context, deps AccountDeps) (*Issued, error) {
	deps.MetricInc(deps.Metrics.RegisterDuplicate)
	deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", deps.Errors.Conflict, nil)
	return nil, deps.Errors.Conflict
}

func normalizeAccountDeps(deps *AccountDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
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
