// Package kv provides the general-purpose key-value backends used for
// client-side persisted state.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/theLastOfCats/storefront/internal/db"
)

var ErrNotFound = errors.New("key not found")

// Store is a string key-value store. Get returns ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Open picks a backend from the DSN: redis:// URLs use Redis, anything else
// goes through db.Open (sqlite path or MySQL DSN).
func Open(ctx context.Context, dsn string) (Store, func() error, error) {
	if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedis(client, "storefront:"), client.Close, nil
	}

	database, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewSQL(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database.Close, nil
}
