// Package storetest provides the behavioural suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertAndFind", testInsertAndFind},
		{"InsertConflict", testInsertConflict},
		{"FindMissing", testFindMissing},
		{"ReissueConfirmationReplacesPrior", testReissueConfirmation},
		{"SetConfirmationOnConfirmedAccount", testSetConfirmationOnConfirmed},
		{"ConsumeConfirmationOnce", testConsumeConfirmationOnce},
		{"ConsumeConfirmationExpired", testConsumeConfirmationExpired},
		{"ConsumeConfirmationConcurrent", testConsumeConfirmationConcurrent},
		{"ResetLifecycle", testResetLifecycle},
		{"ResetExpired", testResetExpired},
		{"ConsumeResetConcurrent", testConsumeResetConcurrent},
		{"UpdatePasswordHash", testUpdatePasswordHash},
		{"PurgeExpiredUnconfirmed", testPurgeExpiredUnconfirmed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func baseTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewAccount returns an unconfirmed account holding an active confirmation token.
func NewAccount(username, email, confirmKey string, now time.Time) *store.Account {
	return &store.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		Role:         "user",
		Confirmation: &store.Token{Key: confirmKey, ExpiresAt: now.Add(24 * time.Hour)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testInsertAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "confirm-1", now)
	require.NoError(t, s.Insert(ctx, acc))

	byID, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "nova", byID.Username)
	require.Equal(t, "nova@x.com", byID.Email)
	require.Equal(t, "user", byID.Role)
	require.False(t, byID.Confirmed)
	require.NotNil(t, byID.Confirmation)
	require.Equal(t, "confirm-1", byID.Confirmation.Key)
	require.True(t, byID.Confirmation.ExpiresAt.Equal(now.Add(24*time.Hour)))
	require.Nil(t, byID.Reset)

	byEmail, err := s.FindByEmail(ctx, "nova@x.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byEmail.ID)

	byHandle, err := s.FindByHandleOrEmail(ctx, "nova", "other@x.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byHandle.ID)

	byOther, err := s.FindByHandleOrEmail(ctx, "someone", "nova@x.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byOther.ID)

	found, err := s.FindByConfirmationToken(ctx, "confirm-1", now)
	require.NoError(t, err)
	require.Equal(t, acc.ID, found.ID)
	require.Equal(t, store.PendingConfirmation, found.VerificationState(now))
}

func testInsertConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	require.NoError(t, s.Insert(ctx, NewAccount("nova", "nova@x.com", "c1", now)))

	err := s.Insert(ctx, NewAccount("nova", "different@x.com", "c2", now))
	require.ErrorIs(t, err, store.ErrConflict)

	err = s.Insert(ctx, NewAccount("different", "nova@x.com", "c3", now))
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.FindByEmail(ctx, "different@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testFindMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()

	_, err := s.FindByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByEmail(ctx, "ghost@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByHandleOrEmail(ctx, "ghost", "ghost@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByConfirmationToken(ctx, "nope", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByResetDigest(ctx, "nope", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeConfirmation(ctx, "nope", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeReset(ctx, "nope", "hash", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.SetResetToken(ctx, uuid.NewString(), store.Token{Key: "k", ExpiresAt: now.Add(time.Hour)}, now), store.ErrNotFound)
	require.ErrorIs(t, s.UpdatePasswordHash(ctx, uuid.NewString(), "h", now), store.ErrNotFound)
}

func testReissueConfirmation(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "old-key", now)
	require.NoError(t, s.Insert(ctx, acc))

	next := store.Token{Key: "new-key", ExpiresAt: now.Add(48 * time.Hour)}
	require.NoError(t, s.SetConfirmationToken(ctx, acc.ID, next, now.Add(time.Second)))

	_, err := s.FindByConfirmationToken(ctx, "old-key", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeConfirmation(ctx, "old-key", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "new-key", got.Confirmation.Key)
	require.True(t, got.Confirmation.ExpiresAt.Equal(next.ExpiresAt))
	require.False(t, got.Confirmed)

	confirmed, err := s.ConsumeConfirmation(ctx, "new-key", now)
	require.NoError(t, err)
	require.Equal(t, acc.ID, confirmed.ID)
}

func testSetConfirmationOnConfirmed(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "k1", now)
	require.NoError(t, s.Insert(ctx, acc))
	_, err := s.ConsumeConfirmation(ctx, "k1", now)
	require.NoError(t, err)

	err = s.SetConfirmationToken(ctx, acc.ID, store.Token{Key: "k2", ExpiresAt: now.Add(time.Hour)}, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, got.Confirmed)
	require.Nil(t, got.Confirmation)
}

func testConsumeConfirmationOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "once", now)
	require.NoError(t, s.Insert(ctx, acc))

	got, err := s.ConsumeConfirmation(ctx, "once", now)
	require.NoError(t, err)
	require.True(t, got.Confirmed)
	require.Nil(t, got.Confirmation)
	require.Equal(t, store.Confirmed, got.VerificationState(now))

	_, err = s.ConsumeConfirmation(ctx, "once", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, stored.Confirmed)
	require.Nil(t, stored.Confirmation)
}

func testConsumeConfirmationExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "late", now)
	require.NoError(t, s.Insert(ctx, acc))

	later := now.Add(24*time.Hour + time.Millisecond)
	_, err := s.FindByConfirmationToken(ctx, "late", later)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeConfirmation(ctx, "late", later)
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.False(t, stored.Confirmed)
	require.Equal(t, store.Unverified, stored.VerificationState(later))
}

func testConsumeConfirmationConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	require.NoError(t, s.Insert(ctx, NewAccount("nova", "nova@x.com", "race", now)))

	successes, misses := race(8, func() error {
		_, err := s.ConsumeConfirmation(ctx, "race", now)
		return err
	})
	require.Equal(t, 1, successes)
	require.Equal(t, 7, misses)
}

func testResetLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "c", now)
	require.NoError(t, s.Insert(ctx, acc))

	first := store.Token{Key: "digest-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.SetResetToken(ctx, acc.ID, first, now))
	second := store.Token{Key: "digest-2", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.SetResetToken(ctx, acc.ID, second, now))

	_, err := s.FindByResetDigest(ctx, "digest-1", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindByResetDigest(ctx, "digest-2", now)
	require.NoError(t, err)
	require.Equal(t, acc.ID, found.ID)
	require.Equal(t, store.ResetPending, found.ResetState(now))

	updated, err := s.ConsumeReset(ctx, "digest-2", "new-hash", now)
	require.NoError(t, err)
	require.Equal(t, "new-hash", updated.PasswordHash)
	require.Nil(t, updated.Reset)

	_, err = s.ConsumeReset(ctx, "digest-2", "newer-hash", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", stored.PasswordHash)
	require.Nil(t, stored.Reset)
	require.Equal(t, store.NoResetPending, stored.ResetState(now))
}

func testResetExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "c", now)
	require.NoError(t, s.Insert(ctx, acc))
	require.NoError(t, s.SetResetToken(ctx, acc.ID, store.Token{Key: "d", ExpiresAt: now.Add(time.Hour)}, now))

	later := now.Add(time.Hour)
	_, err := s.FindByResetDigest(ctx, "d", later)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeReset(ctx, "d", "new-hash", later)
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.PasswordHash, stored.PasswordHash)
}

func testConsumeResetConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "c", now)
	require.NoError(t, s.Insert(ctx, acc))
	require.NoError(t, s.SetResetToken(ctx, acc.ID, store.Token{Key: "d", ExpiresAt: now.Add(time.Hour)}, now))

	successes, misses := race(8, func() error {
		_, err := s.ConsumeReset(ctx, "d", "h", now)
		return err
	})
	require.Equal(t, 1, successes)
	require.Equal(t, 7, misses)
}

func testUpdatePasswordHash(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	acc := NewAccount("nova", "nova@x.com", "c", now)
	require.NoError(t, s.Insert(ctx, acc))

	later := now.Add(time.Minute)
	require.NoError(t, s.UpdatePasswordHash(ctx, acc.ID, "upgraded", later))

	got, err := s.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "upgraded", got.PasswordHash)
	require.True(t, got.UpdatedAt.Equal(later))
	require.Equal(t, "c", got.Confirmation.Key)
}

func testPurgeExpiredUnconfirmed(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()

	stale := NewAccount("stale", "stale@x.com", "k-stale", now.Add(-48*time.Hour))
	fresh := NewAccount("fresh", "fresh@x.com", "k-fresh", now)
	done := NewAccount("done", "done@x.com", "k-done", now.Add(-48*time.Hour))
	require.NoError(t, s.Insert(ctx, stale))
	require.NoError(t, s.Insert(ctx, fresh))
	require.NoError(t, s.Insert(ctx, done))
	_, err := s.ConsumeConfirmation(ctx, "k-done", now.Add(-47*time.Hour))
	require.NoError(t, err)

	removed, err := s.PurgeExpiredUnconfirmed(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, err = s.FindByID(ctx, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = s.FindByID(ctx, done.ID)
	require.NoError(t, err)

	// Purged handles become available again.
	require.NoError(t, s.Insert(ctx, NewAccount("stale", "stale@x.com", "k-again", now)))

	removed, err = s.PurgeExpiredUnconfirmed(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 0, removed)
}

func race(n int, op func() error) (int, int) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		misses    int
	)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := op()

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrNotFound):
				misses++
			}
		}()
	}

	close(start)
	wg.Wait()
	return successes, misses
}
