package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
)

const tracerName = "github.com/ariefcatur/go-parts-fulfillment/internal/orders"

type LineInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderCommand struct {
	Actor       ledger.Actor
	CustomerID  string
	WarehouseID *int64
	Lines       []LineInput
	// ExternalID makes creation idempotent per customer.
	ExternalID string
}

type CreateOrderResult struct {
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Existing      bool            `json:"idempotent"`
}

type ServiceDeps struct {
	Store       Store
	Events      events.Publisher
	Cache       TrackCache
	Metrics     *metrics.Fulfillment
	Logger      *zap.Logger
	Clock       func() time.Time
	ServiceName string
}

// Service is the order fulfillment engine. Every mutating call is one unit of work.
type Service struct {
	store    Store
	events   events.Publisher
	cache    TrackCache
	metrics  *metrics.Fulfillment
	log      *zap.Logger
	clock    func() time.Time
	tracer   trace.Tracer
	producer string

	credit    CreditValidator
	allocator Allocator
	machine   StateMachine
	invoices  InvoiceGenerator
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("orders service: store is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	producer := deps.ServiceName
	if producer == "" {
		producer = "order-api"
	}
	credit := CreditValidator{}
	return &Service{
		store:     deps.Store,
		events:    deps.Events,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		log:       log.Named("orders"),
		clock:     func() time.Time { return clock().UTC() },
		tracer:    otel.Tracer(tracerName),
		producer:  producer,
		credit:    credit,
		allocator: Allocator{},
		machine:   StateMachine{Credit: credit},
		invoices:  InvoiceGenerator{},
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (res CreateOrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.CreateOrder", trace.WithAttributes(
		attribute.String("customer.id", cmd.CustomerID),
		attribute.Int("order.lines", len(cmd.Lines)),
	))
	defer func() { s.finish(span, "create_order", err) }()

	cmd.CustomerID = strings.TrimSpace(cmd.CustomerID)
	cmd.ExternalID = strings.TrimSpace(cmd.ExternalID)
	if err := validateCreate(cmd); err != nil {
		return CreateOrderResult{}, err
	}
	if !cmd.Actor.CanActFor(cmd.CustomerID) {
		return CreateOrderResult{}, ledger.ErrForbidden
	}

	var (
		order   ledger.Order
		invoice ledger.Invoice
		alloc   AllocationResult
	)
	started := time.Now()
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if cmd.ExternalID != "" {
			existing, ok, err := tx.FindOrderByExternalID(ctx, cmd.CustomerID, cmd.ExternalID)
			if err != nil {
				return err
			}
			if ok {
				inv, err := tx.GetInvoiceByOrder(ctx, existing.ID)
				if err != nil {
					return err
				}
				res = CreateOrderResult{
					OrderID:       existing.ID,
					OrderNumber:   existing.OrderNumber,
					InvoiceNumber: inv.InvoiceNumber,
					TotalAmount:   existing.TotalAmount,
					Existing:      true,
				}
				return nil
			}
		}

		customer, err := tx.LockCustomer(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}

		productIDs := distinctProducts(cmd.Lines)
		products, err := tx.GetProducts(ctx, productIDs)
		if err != nil {
			return err
		}

		now := s.clock()
		items, total, err := priceLines(cmd.Lines, products)
		if err != nil {
			return err
		}
		if err := s.credit.Validate(customer, total); err != nil {
			return err
		}

		records, err := tx.LockInventory(ctx, cmd.WarehouseID, productIDs)
		if err != nil {
			return err
		}
		reqs := make([]LineRequest, len(cmd.Lines))
		for i, l := range cmd.Lines {
			reqs[i] = LineRequest{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		alloc, err = s.allocator.Allocate(cmd.WarehouseID, records, reqs, now)
		if err != nil {
			var stockErr *ledger.InsufficientStockError
			if errors.As(err, &stockErr) {
				stockErr.ProductCode = products[stockErr.ProductID].Code
			}
			return err
		}

		id, err := tx.NextOrderID(ctx)
		if err != nil {
			return err
		}
		order = ledger.Order{
			ID:             id,
			OrderNumber:    OrderNumber(id, now),
			ExternalID:     cmd.ExternalID,
			CustomerID:     customer.ID,
			WarehouseID:    cmd.WarehouseID,
			Status:         ledger.OrderPending,
			SubTotal:       total,
			DiscountAmount: decimal.Zero,
			TaxAmount:      decimal.Zero,
			TotalAmount:    total,
			OrderDate:      now,
			Items:          items,
		}
		if err := checkOrder(order); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}
		if err := tx.SaveInventory(ctx, alloc.Touched); err != nil {
			return err
		}
		if err := tx.InsertAllocations(ctx, allocationsFor(order, alloc)); err != nil {
			return err
		}

		invoice = s.invoices.Generate(order, now)
		if err := checkInvoice(invoice); err != nil {
			return err
		}
		if err := tx.InsertInvoice(ctx, &invoice); err != nil {
			return err
		}
		res = CreateOrderResult{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			InvoiceNumber: invoice.InvoiceNumber,
			TotalAmount:   order.TotalAmount,
		}
		return nil
	})
	s.metrics.UnitOfWork("create_order", time.Since(started))
	if err != nil {
		return CreateOrderResult{}, err
	}
	if res.Existing {
		s.log.Info("order create replayed",
			zap.Int64("order_id", res.OrderID), zap.String("external_id", cmd.ExternalID))
		return res, nil
	}

	s.metrics.OrderCreated()
	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	s.publishCreated(ctx, order, invoice)
	s.publishStock(ctx, events.TopicInventoryAllocated, events.EventInventoryAllocated, order.ID, alloc.Touched, stockChanges(alloc.Deductions, -1))
	return res, nil
}

// ProcessOrder confirms a pending order: it re-checks credit and books the order total on the
// customer's outstanding balance.
func (s *Service) ProcessOrder(ctx context.Context, orderID int64, actor ledger.Actor) (ledger.Order, error) {
	return s.Transition(ctx, orderID, ledger.OrderConfirmed, actor)
}

// Transition moves an order to target, applying its side effects atomically.
func (s *Service) Transition(ctx context.Context, orderID int64, target ledger.OrderStatus, actor ledger.Actor) (_ ledger.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Transition", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.target", string(target)),
	))
	defer func() { s.finish(span, "transition", err) }()

	if orderID <= 0 {
		return ledger.Order{}, ledger.Invalid("order id must be positive")
	}
	if _, ok := validNext[target]; !ok {
		return ledger.Order{}, ledger.Invalid("unknown order status %q", target)
	}

	var (
		eff      Effect
		released []ledger.InventoryItem
		allocs   []ledger.Allocation
	)
	started := time.Now()
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanActFor(order.CustomerID) {
			return ledger.ErrForbidden
		}

		req := TransitionRequest{Order: order, Target: target, Actor: actor, Now: s.clock()}
		if target == ledger.OrderConfirmed && CanTransition(order.Status, target) {
			customer, err := tx.LockCustomer(ctx, order.CustomerID)
			if err != nil {
				return err
			}
			req.Customer = customer
		}
		eff, err = s.machine.Transition(req)
		if err != nil {
			return err
		}

		if !eff.BalanceDelta.IsZero() {
			balance := req.Customer.OutstandingBalance.Add(eff.BalanceDelta)
			if balance.IsNegative() || balance.GreaterThan(req.Customer.CreditLimit) {
				return fmt.Errorf("%w: balance %s outside [0, %s] for customer %s",
					ledger.ErrIntegrity, balance.StringFixed(2), req.Customer.CreditLimit.StringFixed(2), req.Customer.ID)
			}
			if err := tx.SetCustomerBalance(ctx, req.Customer.ID, balance); err != nil {
				return err
			}
		}

		if eff.ReleaseStock {
			allocs, err = tx.ListAllocations(ctx, orderID)
			if err != nil {
				return err
			}
			if len(allocs) > 0 {
				ids := make([]int64, 0, len(allocs))
				for _, a := range allocs {
					ids = append(ids, a.InventoryItemID)
				}
				records, err := tx.LockInventoryByIDs(ctx, ids)
				if err != nil {
					return err
				}
				released, err = s.allocator.Release(records, allocs, req.Now)
				if err != nil {
					return err
				}
				if err := tx.SaveInventory(ctx, released); err != nil {
					return err
				}
				if err := tx.ReleaseAllocations(ctx, orderID); err != nil {
					return err
				}
			}
			if err := tx.SetInvoiceStatus(ctx, orderID, ledger.InvoiceCancelled); err != nil {
				return err
			}
		}
		return tx.UpdateOrderStatus(ctx, eff.Order)
	})
	s.metrics.UnitOfWork("transition", time.Since(started))
	if err != nil {
		return ledger.Order{}, err
	}

	s.metrics.Transitioned(string(eff.From), string(eff.Order.Status))
	s.log.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(eff.From)),
		zap.String("to", string(eff.Order.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("balance_delta", eff.BalanceDelta.StringFixed(2)),
	)
	s.refreshTrackCache(ctx, eff.Order)
	s.publish(ctx, events.TopicOrderStatusChanged, events.EventOrderStatusChanged, eff.Order.ID, events.OrderStatusChangedPayload{
		OrderID:     eff.Order.ID,
		OrderNumber: eff.Order.OrderNumber,
		CustomerID:  eff.Order.CustomerID,
		From:        string(eff.From),
		To:          string(eff.Order.Status),
		ActorID:     actor.ID,
	})
	if len(released) > 0 {
		s.publishStock(ctx, events.TopicInventoryReleased, events.EventInventoryReleased, orderID, released, releasedChanges(allocs))
	}
	return eff.Order, nil
}

func (s *Service) GetInvoice(ctx context.Context, orderID int64, actor ledger.Actor) (ledger.Invoice, error) {
	inv, err := s.store.GetInvoiceByOrder(ctx, orderID)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if !actor.CanActFor(inv.CustomerID) {
		return ledger.Invoice{}, ledger.ErrForbidden
	}
	return inv, nil
}

func (s *Service) finish(span trace.Span, op string, err error) {
	if err != nil {
		kind := ledger.Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.metrics.Failed(op, kind)
		if kind == "integrity" || kind == "internal" {
			s.log.Error("operation failed", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
		} else {
			s.log.Debug("operation rejected", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
		}
	}
	span.End()
}

func validateCreate(cmd CreateOrderCommand) error {
	if cmd.CustomerID == "" {
		return ledger.Invalid("customer id is required")
	}
	if len(cmd.Lines) == 0 {
		return ledger.Invalid("at least one line item is required")
	}
	if cmd.WarehouseID != nil && *cmd.WarehouseID <= 0 {
		return ledger.Invalid("warehouse id must be positive")
	}
	for i, l := range cmd.Lines {
		if l.ProductID <= 0 {
			return ledger.Invalid("line %d: product id is required", i+1)
		}
		if l.Quantity <= 0 {
			return ledger.Invalid("line %d: quantity must be greater than zero, got %d", i+1, l.Quantity)
		}
	}
	return nil
}

func distinctProducts(lines []LineInput) []int64 {
	seen := make(map[int64]bool, len(lines))
	out := make([]int64, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// priceLines snapshots current unit prices; client supplied prices are never trusted.
func priceLines(lines []LineInput, products map[int64]ledger.Product) ([]ledger.OrderItem, decimal.Decimal, error) {
	items := make([]ledger.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, decimal.Zero, ledger.NotFound("product %d", l.ProductID)
		}
		if !p.Active {
			return nil, decimal.Zero, ledger.Invalid("product %d (%s) is not active", p.ID, p.Code)
		}
		line := ledger.LineTotal(l.Quantity, p.UnitPrice)
		items = append(items, ledger.OrderItem{
			ProductID:       p.ID,
			QuantityOrdered: l.Quantity,
			UnitPrice:       p.UnitPrice,
			TotalPrice:      line,
		})
		total = total.Add(line)
	}
	return items, total, nil
}

func checkOrder(o ledger.Order) error {
	sum := decimal.Zero
	for _, it := range o.Items {
		if it.QuantityOrdered <= 0 || !it.TotalPrice.Equal(ledger.LineTotal(it.QuantityOrdered, it.UnitPrice)) {
			return fmt.Errorf("%w: order %s line for product %d has inconsistent totals", ledger.ErrIntegrity, o.OrderNumber, it.ProductID)
		}
		sum = sum.Add(it.TotalPrice)
	}
	expected := o.SubTotal.Sub(o.DiscountAmount).Add(o.TaxAmount)
	if !sum.Equal(o.SubTotal) || !expected.Equal(o.TotalAmount) || o.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: order %s totals do not reconcile", ledger.ErrIntegrity, o.OrderNumber)
	}
	return nil
}

func allocationsFor(o ledger.Order, res AllocationResult) []ledger.Allocation {
	out := make([]ledger.Allocation, 0, len(res.Deductions))
	for _, d := range res.Deductions {
		out = append(out, ledger.Allocation{
			OrderID:         o.ID,
			OrderItemID:     o.Items[d.Line].ID,
			ProductID:       d.ProductID,
			InventoryItemID: d.InventoryItemID,
			Quantity:        d.Quantity,
			Status:          ledger.AllocationAllocated,
		})
	}
	return out
}

func stockChanges(ds []Deduction, sign int) map[int64]int {
	out := make(map[int64]int, len(ds))
	for _, d := range ds {
		out[d.InventoryItemID] += sign * d.Quantity
	}
	return out
}

func releasedChanges(allocs []ledger.Allocation) map[int64]int {
	out := make(map[int64]int, len(allocs))
	for _, a := range allocs {
		if a.Status == ledger.AllocationAllocated {
			out[a.InventoryItemID] += a.Quantity
		}
	}
	return out
}
