package cmdconfig

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/store/mongostore"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenStore connects the backend selected by cfg.Store. The returned close
// function releases the connection and is never nil.
func OpenStore(ctx context.Context, cfg *Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store; accounts are lost on exit")
		return memory.New(), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, func() {}, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return redisstore.New(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil

	case "mongo":
		client, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.StoreTimeout,
		})
		if err != nil {
			return nil, func() {}, err
		}
		s := mongostore.New(client.Database(cfg.MongoDatabase), cfg.StoreTimeout)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, func() {}, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
