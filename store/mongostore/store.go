// Package mongostore implements store.Store on a MongoDB collection.
//
// Token consumption is a single FindOneAndUpdate whose filter carries the
// token key, the expiry bound and the unconfirmed flag, so at most one
// concurrent caller can match a given token.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// CollectionName is the collection accounts are stored in.
	CollectionName = "users"

	defaultTimeout = 10 * time.Second
)

// Config describes how to reach the database.
type Config struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	IdleConnTimeout time.Duration
}

// Store persists accounts in a MongoDB collection.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.IdleConnTimeout > 0 {
		opts.SetMaxConnIdleTime(cfg.IdleConnTimeout)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, timeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// New returns a Store over db's users collection. A zero timeout uses 10s
// per operation.
func New(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		coll:    db.Collection(CollectionName),
		timeout: timeout,
	}
}

// EnsureIndexes creates the unique handle and email indexes and the lookup
// indexes used by token queries and the purge.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "confirmationToken", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "resetToken", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
			{
				Keys: bson.D{
					{Key: "isConfirmed", Value: 1},
					{Key: "confirmationExpires", Value: 1},
				},
			},
		},
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Insert(ctx context.Context, account *store.Account) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.coll.InsertOne(ctx, newDocument(account))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*store.Account, error) {
	return s.findOne(ctx, idFilter(id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindByHandleOrEmail(ctx context.Context, handle, email string) (*store.Account, error) {
	if handle == "" && email == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, handleOrEmailFilter(handle, email))
}

func (s *Store) FindByConfirmationToken(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, activeConfirmationFilter(key, now))
}

func (s *Store) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*store.Account, error) {
	if digest == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, activeResetFilter(digest, now))
}

func (s *Store) SetConfirmationToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	return s.updateOne(ctx, unconfirmedFilter(id), setConfirmationUpdate(token.Key, token.ExpiresAt, now))
}

func (s *Store) SetResetToken(ctx context.Context, id string, token store.Token, now time.Time) error {
	return s.updateOne(ctx, idFilter(id), setResetUpdate(token.Key, token.ExpiresAt, now))
}

func (s *Store) ConsumeConfirmation(ctx context.Context, key string, now time.Time) (*store.Account, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	return s.findOneAndUpdate(ctx, activeConfirmationFilter(key, now), consumeConfirmationUpdate(now))
}

func (s *Store) ConsumeReset(ctx context.Context, digest, passwordHash string, now time.Time) (*store.Account, error) {
	if digest == "" {
		return nil, store.ErrNotFound
	}
	return s.findOneAndUpdate(ctx, activeResetFilter(digest, now), consumeResetUpdate(passwordHash, now))
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	return s.updateOne(ctx, idFilter(id), passwordHashUpdate(passwordHash, now))
}

func (s *Store) PurgeExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.coll.DeleteMany(ctx, expiredUnconfirmedFilter(now))
	if err != nil {
		return 0, unavailable(err)
	}
	return res.DeletedCount, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*store.Account, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc accountDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapFindError(err)
	}
	return decodeDocument(&doc)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*store.Account, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc accountDocument
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, mapFindError(err)
	}
	return decodeDocument(&doc)
}

func (s *Store) updateOne(ctx context.Context, filter, update bson.M) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func decodeDocument(doc *accountDocument) (*store.Account, error) {
	acc, err := doc.toAccount()
	if err != nil {
		return nil, unavailable(err)
	}
	return acc, nil
}

func mapFindError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
