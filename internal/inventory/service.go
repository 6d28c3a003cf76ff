package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
)

// Deduper claims an event id once; a false return means it was already handled.
type Deduper interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Forget(ctx context.Context, scope, id string) error
}

// Replenisher watches allocation events and asks purchasing to restock records that fell to
// their reorder point.
type Replenisher struct {
	Dedup       Deduper
	Events      events.Publisher
	Metrics     *metrics.Fulfillment
	Logger      *zap.Logger
	ServiceName string
	Clock       func() time.Time
}

// HandleAllocated is installed as the consumer handler for inventory.allocated. Errors are
// transient ones the consumer retries; a malformed message is logged and dropped.
func (s *Replenisher) HandleAllocated(ctx context.Context, m kafkago.Message) error {
	env, err := events.Decode(m.Value)
	if err != nil {
		s.logger().Error("dropping undecodable event", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != events.EventInventoryAllocated {
		return nil
	}

	if s.Dedup != nil {
		fresh, err := s.Dedup.Claim(ctx, "replenisher", env.EventID)
		if err != nil {
			return fmt.Errorf("dedup claim: %w", err)
		}
		if !fresh {
			return nil
		}
	}

	p, err := events.UnwrapPayload[events.InventoryMovedPayload](env)
	if err != nil {
		s.logger().Error("dropping malformed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	var errs []error
	for _, lvl := range ReorderCandidates(p.Levels) {
		if err := s.publishReorder(ctx, env.EventID, lvl); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		// release the claim so the consumer's retry runs again
		if s.Dedup != nil {
			_ = s.Dedup.Forget(ctx, "replenisher", env.EventID)
		}
		return err
	}
	return nil
}

func (s *Replenisher) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// ReorderCandidates keeps levels at or below their reorder point.
func ReorderCandidates(levels []events.StockLevel) []events.StockLevel {
	var out []events.StockLevel
	for _, l := range levels {
		if l.ReorderPoint > 0 && l.QuantityInStock <= l.ReorderPoint {
			out = append(out, l)
		}
	}
	return out
}

// ReorderQuantity is the economic order quantity, topped up so stock clears the reorder point.
func ReorderQuantity(l events.StockLevel) int {
	qty := l.EconomicOrderQuantity
	if gap := l.ReorderPoint - l.QuantityInStock + 1; gap > qty {
		qty = gap
	}
	return qty
}

func (s *Replenisher) publishReorder(ctx context.Context, sourceEventID string, l events.StockLevel) error {
	if s.Events == nil {
		return nil
	}
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	env, err := events.New(events.EventReorderRequested, s.ServiceName, strconv.FormatInt(l.InventoryItemID, 10), now(), events.ReorderRequestedPayload{
		InventoryItemID: l.InventoryItemID,
		ProductID:       l.ProductID,
		WarehouseID:     l.WarehouseID,
		QuantityInStock: l.QuantityInStock,
		ReorderPoint:    l.ReorderPoint,
		Quantity:        ReorderQuantity(l),
		SourceEventID:   sourceEventID,
	})
	if err != nil {
		return err
	}
	if err := s.Events.Publish(ctx, events.TopicReorderRequested, events.PartitionKey(l.InventoryItemID), env); err != nil {
		return err
	}
	s.Metrics.ReorderRequested()
	s.logger().Info("reorder requested",
		zap.Int64("inventory_item_id", l.InventoryItemID),
		zap.Int64("product_id", l.ProductID),
		zap.Int("in_stock", l.QuantityInStock),
		zap.Int("quantity", ReorderQuantity(l)),
	)
	return nil
}
