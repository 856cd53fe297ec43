// Package redisstore implements store.Store on Redis.
//
// Each account is a hash; unique handles, emails and active token keys are
// string index keys pointing at the account id. Every multi-key mutation is
// a Lua script that re-checks its precondition before writing, so
// consumption of a token is atomic with respect to concurrent callers.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix   = "acct"
	maxSwapAttempts = 3
	purgeBatchSize  = 256
)

// Store persists accounts in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

// New returns a Store that namespaces every key under prefix ("acct" when empty).
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) accountKey(id string) string { return s.prefix + ":a:" + id }
func (s *Store) usernameKey(username string) string { return s.prefix + ":u:" + username }
func (s *Store) emailKey(email string) string { return s.prefix + ":e:" + email }
func (s *Store) confirmationKey(key string) string { return s.prefix + ":c:" + key }
func (s *Store) resetKey(digest string) string { return s.prefix + ":r:" + digest }
func (s *Store) pendingKey() string { return s.prefix + ":pending" }

func (s *Store) Insert(ctx context.Context, account *store.Account) error {
	var confirmKey, confirmExp string
	if account.Confirmation != nil {
		confirmKey = account.Confirmation.Key
		confirmExp = formatMillis(account.Confirmation.ExpiresAt)
	}
	now := account.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	err := insertLua.Run(ctx, s.redis,
		[]string{
			s.accountKey(account.ID),
			s.usernameKey(account.Username),
			s.emailKey(account.Email),
			s.confirmationKey(confirmKey),
			s.pendingKey(),
		},
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Role,
		formatBool(account.Confirmed),
		confirmKey,
		confirmExp,
		formatMillis(account.CreatedAt),
		formatMillis(account.UpdatedAt),
		now.UnixMilli(),
	).Err()
	return mapScriptError(err)
}

func (s *Store) FindByID(ctx context.Context, id string) (*store.Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	acc, err := decodeAccount(fields)
	if err != nil {
		return nil, unavailable(err)
	}
	return acc, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	return s.findByIndex(ctx, s.emailKey(email))
}

func (s *Store) FindByHandleOrEmail(ctx context.Context, handle, email string) (*store.Account, error) {
	if handle != "" {
		acc, err := s.findByIndex(ctx, s.usernameKey(handle))
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return acc, err
		}
	}
	if email == "" {
		return nil, store.ErrNotFound
	}
	return s.findByIndex(ctx, s.emailKey(email))
}

func (s *Store) FindByConfirmationToken(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	acc, err := s.findByIndex(ctx, s.confirmationKey(key))
	if err != nil {
		return nil, err
	}
	if acc.Confirmed || !acc.Confirmation.ActiveAt(now) || acc.Confirmation.Key != key {
		return nil, store.ErrNotFound
	}
	return acc, nil
}

func (s *Store) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*store.Account, error) {
	if digest == "" {
		return nil, store.ErrNotFound
	}
	acc, err := s.findByIndex(ctx, s.resetKey(digest))
	if err != nil {
		return nil, err
	}
	if !acc.Reset.ActiveAt(now) || acc.Reset.Key != digest {
		return nil, store.ErrNotFound
	}
	return acc, nil
}

func (s *Store) SetConfirmationToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	return s.swapToken(ctx, id, token, now, true)
}

func (s *Store) SetResetToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	return s.swapToken(ctx, id, token, now, false)
}

func (s *Store) swapToken(ctx context.Context, id string, token store.Token, now time.Time, confirmation bool) error {
	field, kind, requireUnconfirmed := fieldResetToken, "reset", "0"
	indexKey := s.resetKey
	if confirmation {
		field, kind, requireUnconfirmed = fieldConfirmationToken, "confirmation", "1"
		indexKey = s.confirmationKey
	}

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		current, err := s.redis.HGet(ctx, s.accountKey(id), field).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return unavailable(err)
		}

		err = setTokenLua.Run(ctx, s.redis,
			[]string{
				s.accountKey(id),
				indexKey(current),
				indexKey(token.Key),
				s.pendingKey(),
			},
			id,
			current,
			token.Key,
			token.ExpiresAt.UnixMilli(),
			now.UnixMilli(),
			kind,
			requireUnconfirmed,
		).Err()
		if err != nil && err.Error() == "stale" {
			continue
		}
		return mapScriptError(err)
	}
	return fmt.Errorf("%w: token swap contended", store.ErrUnavailable)
}

func (s *Store) ConsumeConfirmation(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	idx := s.confirmationKey(key)
	id, err := s.redis.Get(ctx, idx).Result()
	if err != nil {
		return nil, mapLookupError(err)
	}

	reply, err := consumeConfirmationLua.Run(ctx, s.redis,
		[]string{idx, s.accountKey(id), s.pendingKey()},
		id, key, now.UnixMilli(),
	).Result()
	if err != nil {
		return nil, mapScriptError(err)
	}
	return decodeReply(reply)
}

func (s *Store) ConsumeReset(ctx context.Context, digest, passwordHash string, now time.Time) (*store.Account, error) {
	if digest == "" {
		return nil, store.ErrNotFound
	}
	idx := s.resetKey(digest)
	id, err := s.redis.Get(ctx, idx).Result()
	if err != nil {
		return nil, mapLookupError(err)
	}

	reply, err := consumeResetLua.Run(ctx, s.redis,
		[]string{idx, s.accountKey(id)},
		id, digest, passwordHash, now.UnixMilli(),
	).Result()
	if err != nil {
		return nil, mapScriptError(err)
	}
	return decodeReply(reply)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	err := updateHashLua.Run(ctx, s.redis,
		[]string{s.accountKey(id)},
		passwordHash, now.UnixMilli(),
	).Err()
	return mapScriptError(err)
}

func (s *Store) PurgeExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	upper := strconv.FormatInt(now.UnixMilli(), 10)

	for {
		ids, err := s.redis.ZRangeByScore(ctx, s.pendingKey(), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   upper,
			Count: purgeBatchSize,
		}).Result()
		if err != nil {
			return removed, unavailable(err)
		}
		if len(ids) == 0 {
			return removed, nil
		}

		progressed := false
		for _, id := range ids {
			n, err := s.purgeOne(ctx, id, now)
			if err != nil {
				return removed, err
			}
			if n > 0 {
				removed += n
				progressed = true
			}
		}
		if !progressed {
			// Remaining members were re-issued or confirmed concurrently.
			return removed, nil
		}
	}
}

func (s *Store) purgeOne(ctx context.Context, id string, now time.Time) (int64, error) {
	fields, err := s.redis.HMGet(ctx, s.accountKey(id), fieldUsername, fieldEmail, fieldConfirmationToken, fieldResetToken).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	str := func(v any) string {
		out, _ := v.(string)
		return out
	}
	username, email, confirmKey, resetDigest := str(fields[0]), str(fields[1]), str(fields[2]), str(fields[3])

	n, err := purgeLua.Run(ctx, s.redis,
		[]string{
			s.accountKey(id),
			s.usernameKey(username),
			s.emailKey(email),
			s.confirmationKey(confirmKey),
			s.resetKey(resetDigest),
			s.pendingKey(),
		},
		id, confirmKey, now.UnixMilli(),
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) findByIndex(ctx context.Context, indexKey string) (*store.Account, error) {
	id, err := s.redis.Get(ctx, indexKey).Result()
	if err != nil {
		return nil, mapLookupError(err)
	}
	return s.FindByID(ctx, id)
}

func decodeReply(reply any) (*store.Account, error) {
	fields, err := decodeFlat(reply)
	if err != nil {
		return nil, unavailable(err)
	}
	acc, err := decodeAccount(fields)
	if err != nil {
		return nil, unavailable(err)
	}
	return acc, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	return unavailable(err)
}

func mapScriptError(err error) error {
	if err == nil {
		return nil
	}
	switch err.Error() {
	case "not_found":
		return store.ErrNotFound
	case "conflict":
		return store.ErrConflict
	default:
		return unavailable(err)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
