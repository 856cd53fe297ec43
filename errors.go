package goAccount

import "errors"

var (
	// ErrValidation reports malformed request input such as a missing handle or email.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredential reports an empty or policy-violating password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrConflict reports that the handle or email is already registered.
	ErrConflict = errors.New("account already exists")
	// ErrInvalidOrExpiredToken is returned for unknown, expired, replayed, and malformed tokens alike.
	ErrInvalidOrExpiredToken = errors.New("token invalid or expired")
	// ErrDeliveryFailed reports that a notification could not be sent. The token it carried stays valid.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrStoreUnavailable reports a backend failure in the account store.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrAccountNotFound reports that no account matches the given email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyConfirmed reports a confirmation request for a confirmed account.
	ErrAlreadyConfirmed = errors.New("account already confirmed")
	// ErrInvalidCredentials is returned by Authenticate for unknown handles and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnconfirmed is returned by Authenticate when confirmation is required and missing.
	ErrAccountUnconfirmed = errors.New("account unconfirmed")
	// ErrTokenGeneration reports an entropy source failure.
	ErrTokenGeneration = errors.New("token generation failed")
	// ErrEngineNotReady is returned when an Engine was not built by Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)
