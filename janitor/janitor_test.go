package janitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s store.Store, id string, confirmed bool, expires time.Time) {
	t.Helper()

	acc := &store.Account{
		ID:           id,
		Username:     id,
		Email:        id + "@x.com",
		PasswordHash: "hash",
		Role:         "user",
		Confirmed:    confirmed,
		CreatedAt:    base.Add(-48 * time.Hour),
		UpdatedAt:    base.Add(-48 * time.Hour),
	}
	if !confirmed {
		acc.Confirmation = &store.Token{Key: "key-" + id, ExpiresAt: expires}
	}
	require.NoError(t, s.Insert(context.Background(), acc))
}

func TestPurgeOnceRemovesOnlyExpiredUnconfirmed(t *testing.T) {
	s := memory.New()
	seed(t, s, "expired", false, base.Add(-time.Minute))
	seed(t, s, "boundary", false, base)
	seed(t, s, "pending", false, base.Add(time.Hour))
	seed(t, s, "confirmed", true, time.Time{})

	core, logs := observer.New(zap.InfoLevel)
	j, err := New(s, Config{}, zap.New(core), func() time.Time { return base })
	require.NoError(t, err)

	n, err := j.PurgeOnce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	ctx := context.Background()
	_, err = s.FindByID(ctx, "expired")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByID(ctx, "boundary")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByID(ctx, "pending")
	require.NoError(t, err)
	_, err = s.FindByID(ctx, "confirmed")
	require.NoError(t, err)

	entries := logs.FilterMessage("purged expired unconfirmed accounts").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, 2, entries[0].ContextMap()["deleted"])
}

type failingStore struct {
	store.Store
	calls int
}

func (f *failingStore) PurgeExpiredUnconfirmed(context.Context, time.Time) (int64, error) {
	f.calls++
	return 0, errors.New("connection reset")
}

func TestPurgeOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	j, err := New(&failingStore{Store: memory.New()}, Config{}, zap.New(core), nil)
	require.NoError(t, err)

	_, err = j.PurgeOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, logs.FilterMessage("purge failed").Len())
}

func TestRunRepeatsUntilCanceled(t *testing.T) {
	fs := &failingStore{Store: memory.New()}
	j, err := New(fs, Config{Interval: 5 * time.Millisecond}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, j.Run(ctx), context.DeadlineExceeded)
	require.GreaterOrEqual(t, fs.calls, 2)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{}, nil, nil)
	require.Error(t, err)

	_, err = New(memory.New(), Config{Interval: -time.Second}, nil, nil)
	require.Error(t, err)

	j, err := New(memory.New(), Config{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, defaultInterval, j.interval)
	require.Equal(t, defaultTimeout, j.timeout)
}
