package rejections

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
)

const (
	maxReasonLen      = 500
	maxDescriptionLen = 1000
	defaultNotes      = "Resolved via admin interface"
)

var validNext = map[ledger.RejectionStatus]map[ledger.RejectionStatus]bool{
	ledger.RejectionReported:           {ledger.RejectionUnderInvestigation: true, ledger.RejectionResolved: true},
	ledger.RejectionUnderInvestigation: {ledger.RejectionResolved: true},
	ledger.RejectionResolved:           {ledger.RejectionClosed: true},
	ledger.RejectionClosed:             {},
}

type CreateCommand struct {
	Actor       ledger.Actor
	CustomerID  string
	ProductID   int64
	OrderID     *int64
	Quantity    int
	Reason      string
	Description string
	CostImpact  *decimal.Decimal
}

type ServiceDeps struct {
	Store       Store
	Events      events.Publisher
	Metrics     *metrics.Fulfillment
	Logger      *zap.Logger
	Clock       func() time.Time
	NewID       func() string
	ServiceName string
}

// Tracker records material quality rejections. Its lifecycle is independent of orders.
type Tracker struct {
	store    Store
	events   events.Publisher
	metrics  *metrics.Fulfillment
	log      *zap.Logger
	clock    func() time.Time
	newID    func() string
	producer string
}

func NewTracker(deps ServiceDeps) (*Tracker, error) {
	if deps.Store == nil {
		return nil, errors.New("rejections: store is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	producer := deps.ServiceName
	if producer == "" {
		producer = "order-api"
	}
	return &Tracker{
		store:    deps.Store,
		events:   deps.Events,
		metrics:  deps.Metrics,
		log:      log.Named("rejections"),
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		producer: producer,
	}, nil
}

// RejectionNumber is REJ-<date>-<first 8 hex chars of a random id>.
func RejectionNumber(at time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("REJ-%s-%s", at.UTC().Format("20060102"), suffix)
}

func (t *Tracker) Create(ctx context.Context, cmd CreateCommand) (ledger.MaterialRejection, error) {
	cmd.CustomerID = strings.TrimSpace(cmd.CustomerID)
	cmd.Reason = strings.TrimSpace(cmd.Reason)
	cmd.Description = strings.TrimSpace(cmd.Description)
	if err := validateCreate(cmd); err != nil {
		return ledger.MaterialRejection{}, err
	}
	if !cmd.Actor.CanActFor(cmd.CustomerID) {
		return ledger.MaterialRejection{}, ledger.ErrForbidden
	}

	var rej ledger.MaterialRejection
	err := t.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetProduct(ctx, cmd.ProductID); err != nil {
			return err
		}
		if _, err := tx.GetCustomer(ctx, cmd.CustomerID); err != nil {
			return err
		}
		if cmd.OrderID != nil {
			owner, err := tx.OrderOwner(ctx, *cmd.OrderID)
			if err != nil {
				return err
			}
			if owner != cmd.CustomerID {
				return ledger.Invalid("order %d does not belong to customer %s", *cmd.OrderID, cmd.CustomerID)
			}
		}

		now := t.clock()
		rej = ledger.MaterialRejection{
			RejectionNumber:  RejectionNumber(now, t.newID()),
			ProductID:        cmd.ProductID,
			CustomerID:       cmd.CustomerID,
			OrderID:          cmd.OrderID,
			RejectionDate:    now,
			RejectedQuantity: cmd.Quantity,
			Reason:           cmd.Reason,
			Description:      cmd.Description,
			Status:           ledger.RejectionReported,
			CostImpact:       cmd.CostImpact,
		}
		return tx.InsertRejection(ctx, &rej)
	})
	if err != nil {
		t.metrics.Failed("create_rejection", ledger.Kind(err))
		return ledger.MaterialRejection{}, err
	}

	t.metrics.Rejection(string(rej.Status))
	t.log.Info("rejection reported",
		zap.Int64("rejection_id", rej.ID),
		zap.String("rejection_number", rej.RejectionNumber),
		zap.Int64("product_id", rej.ProductID),
		zap.Int("quantity", rej.RejectedQuantity),
	)
	t.publish(ctx, events.EventRejectionReported, rej)
	return rej, nil
}

func (t *Tracker) StartInvestigation(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error) {
	return t.move(ctx, id, actor, ledger.RejectionUnderInvestigation, "")
}

// Resolve is not idempotent: resolving a settled rejection fails with ledger.ErrAlreadyResolved.
func (t *Tracker) Resolve(ctx context.Context, id int64, notes string, actor ledger.Actor) (ledger.MaterialRejection, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = defaultNotes
	}
	if len(notes) > maxDescriptionLen {
		return ledger.MaterialRejection{}, ledger.Invalid("resolution notes exceed %d characters", maxDescriptionLen)
	}
	return t.move(ctx, id, actor, ledger.RejectionResolved, notes)
}

func (t *Tracker) Close(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error) {
	return t.move(ctx, id, actor, ledger.RejectionClosed, "")
}

func (t *Tracker) move(ctx context.Context, id int64, actor ledger.Actor, target ledger.RejectionStatus, notes string) (ledger.MaterialRejection, error) {
	if id <= 0 {
		return ledger.MaterialRejection{}, ledger.Invalid("rejection id must be positive")
	}
	var rej ledger.MaterialRejection
	err := t.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockRejection(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanActFor(cur.CustomerID) {
			return ledger.ErrForbidden
		}
		if target == ledger.RejectionResolved && cur.Status.Settled() {
			return fmt.Errorf("%w: rejection %s is %s", ledger.ErrAlreadyResolved, cur.RejectionNumber, cur.Status)
		}
		if !validNext[cur.Status][target] {
			return ledger.Invalid("rejection %s cannot move from %s to %s", cur.RejectionNumber, cur.Status, target)
		}
		cur.Status = target
		if target == ledger.RejectionResolved {
			now := t.clock()
			cur.ResolutionDate = &now
			cur.ResolutionNotes = notes
		}
		if err := tx.UpdateRejection(ctx, cur); err != nil {
			return err
		}
		rej = cur
		return nil
	})
	if err != nil {
		t.metrics.Failed("rejection_"+strings.ToLower(string(target)), ledger.Kind(err))
		return ledger.MaterialRejection{}, err
	}

	t.metrics.Rejection(string(rej.Status))
	t.log.Info("rejection status changed",
		zap.Int64("rejection_id", rej.ID),
		zap.String("status", string(rej.Status)),
		zap.String("actor_id", actor.ID),
	)
	t.publish(ctx, events.EventRejectionTransition, rej)
	return rej, nil
}

func (t *Tracker) publish(ctx context.Context, eventType string, r ledger.MaterialRejection) {
	if t.events == nil {
		return
	}
	env, err := events.New(eventType, t.producer, strconv.FormatInt(r.ID, 10), t.clock(), events.RejectionPayload{
		RejectionID:     r.ID,
		RejectionNumber: r.RejectionNumber,
		ProductID:       r.ProductID,
		CustomerID:      r.CustomerID,
		OrderID:         r.OrderID,
		Quantity:        r.RejectedQuantity,
		Reason:          r.Reason,
		Status:          string(r.Status),
	})
	if err != nil {
		t.log.Error("build event", zap.Error(err))
		return
	}
	if err := t.events.Publish(ctx, events.TopicRejectionsLifecycle, events.PartitionKey(r.ID), env); err != nil {
		t.log.Warn("publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func validateCreate(cmd CreateCommand) error {
	switch {
	case cmd.CustomerID == "":
		return ledger.Invalid("customer id is required")
	case cmd.ProductID <= 0:
		return ledger.Invalid("product id is required")
	case cmd.Quantity <= 0:
		return ledger.Invalid("rejected quantity must be greater than zero, got %d", cmd.Quantity)
	case cmd.Reason == "":
		return ledger.Invalid("reason is required")
	case len(cmd.Reason) > maxReasonLen:
		return ledger.Invalid("reason exceeds %d characters", maxReasonLen)
	case len(cmd.Description) > maxDescriptionLen:
		return ledger.Invalid("description exceeds %d characters", maxDescriptionLen)
	case cmd.OrderID != nil && *cmd.OrderID <= 0:
		return ledger.Invalid("order id must be positive")
	case cmd.CostImpact != nil && cmd.CostImpact.IsNegative():
		return ledger.Invalid("cost impact must not be negative")
	}
	return nil
}
