package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"time"
)

const (
	secretTokenSize = 32
	// SecretTokenLength is the hex-encoded length of a generated token.
	SecretTokenLength = secretTokenSize * 2
)

// NewSecretToken returns a fresh hex-encoded 256-bit token and its digest.
// The raw value is handed to the recipient; only the digest is persisted.
func NewSecretToken() (string, string, error) {
	var secret [secretTokenSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", err
	}

	raw := hex.EncodeToString(secret[:])
	return raw, DigestToken(raw), nil
}

// DigestToken hashes a presented raw token into its stored lookup form.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// WellFormedToken reports whether raw could have come from NewSecretToken.
func WellFormedToken(raw string) bool {
	if len(raw) != SecretTokenLength {
		return false
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// RandomDelay picks a uniformly random duration in [min, max].
func RandomDelay(min, max time.Duration) (time.Duration, error) {
	if max <= min {
		return min, nil
	}

	span := int64(max-min) + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}
	return min + time.Duration(n.Int64()), nil
}
