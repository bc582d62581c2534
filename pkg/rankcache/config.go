package rankcache

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/related"
)

var _ Store = (*redis.Client)(nil)

// NewFromConfig builds the result cache described by cfg. With
// cfg.Enabled unset no connection is made and Rank goes straight to the
// engine. Otherwise results live in Redis for cfg.CacheTTL and the caller
// must Close the cache to release the connection.
func NewFromConfig[D any](ctx context.Context, cfg config.RedisConfig, engine *related.Engine[D], opts ...ResultCacheOption) (*ResultCache[D], error) {
	if !cfg.Enabled {
		return NewResultCache[D](nil, engine, cfg.CacheTTL, opts...), nil
	}
	client, err := redis.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening result cache store: %w", err)
	}
	c := NewResultCache[D](client, engine, cfg.CacheTTL, opts...)
	c.closer = client
	return c, nil
}
