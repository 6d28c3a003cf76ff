package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

// TrackCache keeps tracking views for a short while. Cache failures degrade to a store read.
type TrackCache struct {
	RDB    *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

func NewTrackCache(rdb *redis.Client, log *zap.Logger) *TrackCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrackCache{RDB: rdb, TTL: TTLTrackCache, Logger: log.Named("track_cache")}
}

func (c *TrackCache) Load(ctx context.Context, orderID int64) (orders.TrackingView, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderTrack, orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Logger.Warn("cache read", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return orders.TrackingView{}, false
	}
	var v orders.TrackingView
	if err := json.Unmarshal(b, &v); err != nil {
		c.Logger.Warn("cache decode", zap.Int64("order_id", orderID), zap.Error(err))
		return orders.TrackingView{}, false
	}
	return v, true
}

// Store writes v unless the cached view is newer. The read and the write run under WATCH, so
// a concurrent writer aborts this one rather than being overwritten.
func (c *TrackCache) Store(ctx context.Context, v orders.TrackingView) {
	b, err := json.Marshal(v)
	if err != nil {
		c.Logger.Warn("cache encode", zap.Int64("order_id", v.OrderID), zap.Error(err))
		return
	}
	key := fmt.Sprintf(KeyOrderTrack, v.OrderID)
	err = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached orders.TrackingView
			if json.Unmarshal(cur, &cached) == nil && !v.Supersedes(cached) {
				return nil
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, c.TTL)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		c.Logger.Debug("cache write lost race", zap.Int64("order_id", v.OrderID))
	default:
		c.Logger.Warn("cache write", zap.Int64("order_id", v.OrderID), zap.Error(err))
	}
}

func (c *TrackCache) Invalidate(ctx context.Context, orderID int64) {
	if err := c.RDB.Del(ctx, fmt.Sprintf(KeyOrderTrack, orderID)).Err(); err != nil {
		c.Logger.Warn("cache invalidate", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

var _ orders.TrackCache = (*TrackCache)(nil)
