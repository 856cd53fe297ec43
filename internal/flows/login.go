package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

type LoginMetrics struct {
	LoginSuccess         int
	LoginFailure         int
	PasswordHashUpgraded int
}

type LoginEvents struct {
	LoginSuccess         string
	LoginFailure         string
	PasswordHashUpgraded string
}

type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountUnconfirmed error
}

type LoginDeps struct {
	RequireConfirmed bool
	UpgradeOnLogin   bool

	Now            func() time.Time
	VerifyPassword func(string, string) (bool, error)
	DummyVerify    func(string)
	NeedsUpgrade   func(string) (bool, error)
	HashPassword   func(string) (string, error)

	FindByHandleOrEmail func(context.Context, string, string) (*store.Account, error)
	UpdatePasswordHash  func(context.Context, string, string, time.Time) error
	MapStoreError       func(error) error
	// OnUpgradeFailure observes best-effort rehash failures.
	OnUpgradeFailure func(accountID string, err error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunAuthenticate checks identifier (a username or an email) and password
// against the store. It establishes no session.
func RunAuthenticate(ctx context.Context, identifier, password string, deps LoginDeps) (*store.Account, error) {
	normalizeLoginDeps(&deps)

	if deps.VerifyPassword == nil || deps.FindByHandleOrEmail == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(accountID string, err error, reason string) (*store.Account, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return fail("", deps.Errors.InvalidCredentials, "empty_input")
	}

	handle := store.NormalizeUsername(identifier)
	var email string
	if strings.Contains(identifier, "@") {
		handle = ""
		email = store.NormalizeEmail(identifier)
	}

	account, err := deps.FindByHandleOrEmail(ctx, handle, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			deps.DummyVerify(password)
			return fail("", deps.Errors.InvalidCredentials, "account_not_found")
		}
		return fail("", deps.MapStoreError(err), "lookup_failed")
	}

	ok, err := deps.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return fail(account.ID, deps.Errors.InvalidCredentials, "password_mismatch")
	}
	if deps.RequireConfirmed && !account.Confirmed {
		return fail(account.ID, deps.Errors.AccountUnconfirmed, "unconfirmed")
	}

	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		upgradePasswordHash(ctx, account, password, deps)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.ID, nil, nil)
	return account, nil
}

func upgradePasswordHash(ctx context.Context, account *store.Account, password string, deps LoginDeps) {
	needsUpgrade, err := deps.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := deps.HashPassword(password)
	if err != nil {
		deps.OnUpgradeFailure(account.ID, err)
		return
	}
	// Best-effort: a failed rehash must not fail a valid login.
	if err := deps.UpdatePasswordHash(ctx, account.ID, upgraded, deps.Now()); err != nil {
		deps.OnUpgradeFailure(account.ID, err)
		return
	}
	account.PasswordHash = upgraded
	deps.MetricInc(deps.Metrics.PasswordHashUpgraded)
	deps.EmitAudit(ctx, deps.Events.PasswordHashUpgraded, true, account.ID, nil, nil)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(string) {}
	}
	if deps.OnUpgradeFailure == nil {
		deps.OnUpgradeFailure = func(string, error) {}
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
