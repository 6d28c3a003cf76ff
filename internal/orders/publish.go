package orders

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// Events are emitted after commit. A publish failure is logged and never undoes the
// committed unit of work.
func (s *Service) publish(ctx context.Context, topic, eventType string, orderID int64, payload any) {
	if s.events == nil {
		return
	}
	env, err := events.New(eventType, s.producer, strconv.FormatInt(orderID, 10), s.clock(), payload)
	if err != nil {
		s.log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, topic, events.PartitionKey(orderID), env); err != nil {
		s.log.Warn("publish event", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) publishCreated(ctx context.Context, o ledger.Order, inv ledger.Invoice) {
	lines := make([]events.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, events.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.QuantityOrdered,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	s.publish(ctx, events.TopicOrderCreated, events.EventOrderCreated, o.ID, events.OrderCreatedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		WarehouseID:   o.WarehouseID,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Items:         lines,
	})
}

func (s *Service) publishStock(ctx context.Context, topic, eventType string, orderID int64, records []ledger.InventoryItem, changes map[int64]int) {
	if len(records) == 0 {
		return
	}
	levels := make([]events.StockLevel, 0, len(records))
	for _, r := range records {
		levels = append(levels, events.StockLevel{
			InventoryItemID:       r.ID,
			ProductID:             r.ProductID,
			WarehouseID:           r.WarehouseID,
			QuantityChange:        changes[r.ID],
			QuantityInStock:       r.QuantityInStock,
			ReorderPoint:          r.ReorderPoint,
			EconomicOrderQuantity: r.EconomicOrderQuantity,
		})
	}
	s.publish(ctx, topic, eventType, orderID, events.InventoryMovedPayload{OrderID: orderID, Levels: levels})
}
