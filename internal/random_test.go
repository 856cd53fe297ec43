package internal

import (
	"testing"
	"time"
)

func TestNewSecretTokenShape(t *testing.T) {
	raw, digest, err := NewSecretToken()
	if err != nil {
		t.Fatalf("NewSecretToken failed: %v", err)
	}
	if len(raw) != SecretTokenLength {
		t.Fatalf("expected %d hex chars, got %d", SecretTokenLength, len(raw))
	}
	if !WellFormedToken(raw) {
		t.Fatalf("expected generated token to be well formed: %q", raw)
	}
	if digest == raw {
		t.Fatal("digest must differ from raw token")
	}
	if DigestToken(raw) != digest {
		t.Fatal("expected digest to be deterministic")
	}
}

func TestNewSecretTokenUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		raw, _, err := NewSecretToken()
		if err != nil {
			t.Fatalf("NewSecretToken failed: %v", err)
		}
		if _, ok := seen[raw]; ok {
			t.Fatalf("duplicate token generated: %s", raw)
		}
		seen[raw] = struct{}{}
	}
}

func TestWellFormedTokenRejects(t *testing.T) {
	cases := []string{
		"",
		"bogus",
		"ABCDEF0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
		"zz" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0",
	}
	for _, tc := range cases {
		if WellFormedToken(tc) {
			t.Fatalf("expected %q to be rejected", tc)
		}
	}
}

func TestRandomDelayBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d, err := RandomDelay(20*time.Millisecond, 40*time.Millisecond)
		if err != nil {
			t.Fatalf("RandomDelay failed: %v", err)
		}
		if d < 20*time.Millisecond || d > 40*time.Millisecond {
			t.Fatalf("delay out of range: %v", d)
		}
	}

	d, err := RandomDelay(5*time.Millisecond, 0)
	if err != nil || d != 5*time.Millisecond {
		t.Fatalf("expected degenerate range to return min, got %v err=%v", d, err)
	}
}
