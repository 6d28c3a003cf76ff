package redisx_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
	"github.com/ariefcatur/go-parts-fulfillment/internal/redisx"
)

func TestKeyFormats(t *testing.T) {
	t.Parallel()

	require.Equal(t, "track:order:42", fmt.Sprintf(redisx.KeyOrderTrack, int64(42)))
	require.Equal(t, "dedup:replenisher:ev-1", fmt.Sprintf(redisx.KeyDedup, "replenisher", "ev-1"))
}

func TestAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redisx.New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, redisx.Ping(ctx, rdb))

	t.Run("dedup", func(t *testing.T) {
		d := redisx.NewDedup(rdb)
		d.TTL = time.Minute
		id := uuid.NewString()

		fresh, err := d.Claim(ctx, "test", id)
		require.NoError(t, err)
		require.True(t, fresh)

		fresh, err = d.Claim(ctx, "test", id)
		require.NoError(t, err)
		require.False(t, fresh)

		require.NoError(t, d.Forget(ctx, "test", id))
		fresh, err = d.Claim(ctx, "test", id)
		require.NoError(t, err)
		require.True(t, fresh)
	})

	t.Run("track cache", func(t *testing.T) {
		c := redisx.NewTrackCache(rdb, nil)
		c.TTL = time.Minute
		id := time.Now().UnixNano()

		_, ok := c.Load(ctx, id)
		require.False(t, ok)

		c.Store(ctx, orders.TrackingView{OrderID: id, CustomerID: "c-1", Status: "Pending", TotalAmount: decimal.RequireFromString("12.50")})
		v, ok := c.Load(ctx, id)
		require.True(t, ok)
		require.Equal(t, "c-1", v.CustomerID)
		require.Equal(t, "12.5", v.TotalAmount.String())

		c.Invalidate(ctx, id)
		_, ok = c.Load(ctx, id)
		require.False(t, ok)
	})

	t.Run("track cache keeps newer view", func(t *testing.T) {
		c := redisx.NewTrackCache(rdb, nil)
		c.TTL = time.Minute
		id := time.Now().UnixNano()
		t.Cleanup(func() { c.Invalidate(ctx, id) })

		c.Store(ctx, orders.TrackingView{OrderID: id, CustomerID: "c-1", Status: "Confirmed"})
		c.Store(ctx, orders.TrackingView{OrderID: id, CustomerID: "c-1", Status: "Pending"})
		v, ok := c.Load(ctx, id)
		require.True(t, ok)
		require.Equal(t, "Confirmed", v.Status)

		c.Store(ctx, orders.TrackingView{OrderID: id, CustomerID: "c-1", Status: "Cancelled"})
		v, ok = c.Load(ctx, id)
		require.True(t, ok)
		require.Equal(t, "Cancelled", v.Status)
	})
}
