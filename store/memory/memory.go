// Package memory provides a mutex-guarded in-process implementation of
// store.Store. It is intended for tests, examples and single-process
// deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

// Store keeps accounts in maps guarded by a single RWMutex.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*store.Account
	byUsername map[string]string
	byEmail    map[string]string
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]*store.Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *Store) Insert(ctx context.Context, account *store.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[account.ID]; ok {
		return store.ErrConflict
	}
	if _, ok := s.byUsername[account.Username]; ok {
		return store.ErrConflict
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return store.ErrConflict
	}

	cp := account.Clone()
	s.byID[cp.ID] = cp
	s.byUsername[cp.Username] = cp.ID
	s.byEmail[cp.Email] = cp.ID
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByHandleOrEmail(ctx context.Context, handle, email string) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byUsername[handle]; ok && handle != "" {
		return s.byID[id].Clone(), nil
	}
	if id, ok := s.byEmail[email]; ok && email != "" {
		return s.byID[id].Clone(), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindByConfirmationToken(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := s.matchConfirmationLocked(key, now)
	if acc == nil {
		return nil, store.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *Store) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := s.matchResetLocked(digest, now)
	if acc == nil {
		return nil, store.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *Store) SetConfirmationToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok || acc.Confirmed {
		return store.ErrNotFound
	}
	acc.Confirmation = &store.Token{Key: token.Key, ExpiresAt: token.ExpiresAt}
	acc.UpdatedAt = now
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	acc.Reset = &store.Token{Key: token.Key, ExpiresAt: token.ExpiresAt}
	acc.UpdatedAt = now
	return nil
}

func (s *Store) ConsumeConfirmation(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.matchConfirmationLocked(key, now)
	if acc == nil {
		return nil, store.ErrNotFound
	}
	acc.Confirmed = true
	acc.Confirmation = nil
	acc.UpdatedAt = now
	return acc.Clone(), nil
}

func (s *Store) ConsumeReset(ctx context.Context, digest, passwordHash string, now time.Time) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.matchResetLocked(digest, now)
	if acc == nil {
		return nil, store.ErrNotFound
	}
	acc.PasswordHash = passwordHash
	acc.Reset = nil
	acc.UpdatedAt = now
	return acc.Clone(), nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	acc.PasswordHash = passwordHash
	acc.UpdatedAt = now
	return nil
}

func (s *Store) PurgeExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, acc := range s.byID {
		if acc.Confirmed || acc.Confirmation == nil || acc.Confirmation.ExpiresAt.After(now) {
			continue
		}
		delete(s.byID, id)
		delete(s.byUsername, acc.Username)
		delete(s.byEmail, acc.Email)
		removed++
	}
	return removed, nil
}

func (s *Store) matchConfirmationLocked(key string, now time.Time) *store.Account {
	if key == "" {
		return nil
	}
	for _, acc := range s.byID {
		if acc.Confirmed || !acc.Confirmation.ActiveAt(now) {
			continue
		}
		if acc.Confirmation.Key == key {
			return acc
		}
	}
	return nil
}

func (s *Store) matchResetLocked(digest string, now time.Time) *store.Account {
	if digest == "" {
		return nil
	}
	for _, acc := range s.byID {
		if acc.Reset.ActiveAt(now) && acc.Reset.Key == digest {
			return acc
		}
	}
	return nil
}
