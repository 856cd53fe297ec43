package password

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const bcryptMaxBytes = 72

// Hasher produces argon2id hashes and verifies both argon2id and legacy
// bcrypt hashes. Accounts imported from bcrypt-era stores keep working and
// report NeedsUpgrade so the caller can rehash after a successful login.
type Hasher struct {
	argon *Argon2

	dummyOnce sync.Once
	dummyHash string
}

// NewHasher builds a Hasher with the given argon2id parameters.
func NewHasher(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

// Hash returns a new argon2id PHC string for password.
func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify checks password against encodedHash, selecting the algorithm from
// the hash prefix.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case isArgon2Hash(encodedHash):
		return h.argon.Verify(password, encodedHash)
	case isBcryptHash(encodedHash):
		return verifyBcrypt(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// argon2id hash. Legacy bcrypt hashes always need an upgrade.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	switch {
	case isArgon2Hash(encodedHash):
		return h.argon.NeedsUpgrade(encodedHash)
	case isBcryptHash(encodedHash):
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

// DummyVerify spends the same work as a real verification against a
// throwaway hash. Callers use it when no account matched so that response
// timing does not reveal whether an identifier exists.
func (h *Hasher) DummyVerify(password string) {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = h.argon.Hash("goaccount-dummy-password")
	})
	if h.dummyHash == "" || password == "" {
		return
	}
	_, _ = h.argon.Verify(password, h.dummyHash)
}

func isBcryptHash(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	// bcrypt implementations that wrote these hashes only ever saw the first 72 bytes.
	if len(password) > bcryptMaxBytes {
		password = password[:bcryptMaxBytes]
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
