package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
)

type memDedup struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (d *memDedup) Claim(_ context.Context, scope, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	key := scope + ":" + id
	if d.claimed[key] {
		return false, nil
	}
	d.claimed[key] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, scope+":"+id)
	return nil
}

type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
	keys []string
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, key []byte, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if topic != events.TopicReorderRequested {
		return errors.New("unexpected topic " + topic)
	}
	p.envs = append(p.envs, env)
	p.keys = append(p.keys, string(key))
	return nil
}

func allocatedMessage(t *testing.T, levels ...events.StockLevel) (kafkago.Message, events.Envelope) {
	t.Helper()
	env, err := events.New(events.EventInventoryAllocated, "order-api", "5", time.Now(), events.InventoryMovedPayload{OrderID: 5, Levels: levels})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.TopicInventoryAllocated, Value: b}, env
}

func TestReorderQuantity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 200, inventory.ReorderQuantity(events.StockLevel{QuantityInStock: 90, ReorderPoint: 100, EconomicOrderQuantity: 200}))
	require.Equal(t, 101, inventory.ReorderQuantity(events.StockLevel{QuantityInStock: 0, ReorderPoint: 100, EconomicOrderQuantity: 20}))
}

func TestReorderCandidates(t *testing.T) {
	t.Parallel()

	got := inventory.ReorderCandidates([]events.StockLevel{
		{InventoryItemID: 1, QuantityInStock: 100, ReorderPoint: 100},
		{InventoryItemID: 2, QuantityInStock: 101, ReorderPoint: 100},
		{InventoryItemID: 3, QuantityInStock: 0, ReorderPoint: 0},
	})
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].InventoryItemID)
}

func TestHandleAllocatedPublishesOncePerEvent(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	r := &inventory.Replenisher{
		Dedup:       &memDedup{claimed: map[string]bool{}},
		Events:      pub,
		ServiceName: "order-api-replenisher",
	}
	msg, src := allocatedMessage(t,
		events.StockLevel{InventoryItemID: 4, ProductID: 1, WarehouseID: 2, QuantityInStock: 60, ReorderPoint: 80, EconomicOrderQuantity: 180},
		events.StockLevel{InventoryItemID: 1, ProductID: 1, WarehouseID: 1, QuantityInStock: 400, ReorderPoint: 100, EconomicOrderQuantity: 200},
	)

	require.NoError(t, r.HandleAllocated(context.Background(), msg))
	require.NoError(t, r.HandleAllocated(context.Background(), msg))

	require.Len(t, pub.envs, 1)
	require.Equal(t, []string{"4"}, pub.keys)
	require.Equal(t, events.EventReorderRequested, pub.envs[0].EventType)

	p, err := events.UnwrapPayload[events.ReorderRequestedPayload](pub.envs[0])
	require.NoError(t, err)
	require.Equal(t, int64(4), p.InventoryItemID)
	require.Equal(t, 180, p.Quantity)
	require.Equal(t, src.EventID, p.SourceEventID)
}

func TestHandleAllocatedRetriesAfterPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{err: errors.New("broker down")}
	r := &inventory.Replenisher{Dedup: &memDedup{claimed: map[string]bool{}}, Events: pub}
	msg, _ := allocatedMessage(t, events.StockLevel{InventoryItemID: 9, QuantityInStock: 1, ReorderPoint: 10, EconomicOrderQuantity: 50})

	require.Error(t, r.HandleAllocated(context.Background(), msg))

	pub.err = nil
	require.NoError(t, r.HandleAllocated(context.Background(), msg))
	require.Len(t, pub.envs, 1)
}

func TestHandleAllocatedIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	r := &inventory.Replenisher{Events: pub}
	env, err := events.New(events.EventOrderCreated, "order-api", "1", time.Now(), events.OrderCreatedPayload{OrderID: 1})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, r.HandleAllocated(context.Background(), kafkago.Message{Value: b}))
	require.Empty(t, pub.envs)

	// retrying a malformed message cannot succeed
	require.NoError(t, r.HandleAllocated(context.Background(), kafkago.Message{Value: []byte("{")}))
	require.Empty(t, pub.envs)
}

func TestHandleAllocatedSurfacesDedupFailure(t *testing.T) {
	t.Parallel()

	r := &inventory.Replenisher{Dedup: &memDedup{err: errors.New("redis timeout")}, Events: &capturePublisher{}}
	msg, _ := allocatedMessage(t, events.StockLevel{InventoryItemID: 9, QuantityInStock: 1, ReorderPoint: 10})
	require.ErrorContains(t, r.HandleAllocated(context.Background(), msg), "dedup claim")
}
