package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup marks processed event ids with SET NX so redelivered messages are skipped.
type Dedup struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewDedup(rdb *redis.Client) *Dedup {
	return &Dedup{RDB: rdb, TTL: TTLDedup}
}

func (d *Dedup) Claim(ctx context.Context, scope, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, scope, id), time.Now().UTC().Format(time.RFC3339), d.TTL).Result()
}

func (d *Dedup) Forget(ctx context.Context, scope, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, scope, id)).Err()
}
