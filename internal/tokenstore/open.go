package tokenstore

import (
	"context"
	"fmt"

	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/infra"
)

// Open builds the backend named by cfg.TokenStore. The returned close function
// releases any connection or file handle and is safe to call once.
func Open(ctx context.Context, cfg config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.TokenStore {
	case config.StoreMemory:
		return NewMemory(), noop, nil
	case config.StoreFile:
		store, err := OpenBolt(cfg.TokenStorePath, cfg.TokenScope)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.StoreRedis:
		client, err := infra.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return NewRedis(client, cfg.TokenScope), client.Close, nil
	case config.StorePostgres:
		pool, err := infra.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store := NewPostgres(pool, cfg.TokenScope)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, func() error { pool.Close(); return nil }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported token store %q", cfg.TokenStore)
	}
}
