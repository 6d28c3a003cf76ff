package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAlreadyResolved     = errors.New("rejection already resolved")
	// ErrContention is retryable: the caller should resubmit the whole request.
	ErrContention = errors.New("concurrent update conflict, retry")
	// ErrIntegrity is fatal for the operation and must be logged.
	ErrIntegrity = errors.New("integrity violation")
)

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type CreditLimitError struct {
	CustomerID  string
	Limit       decimal.Decimal
	Outstanding decimal.Decimal
	Requested   decimal.Decimal
}

// Available is the unused credit line.
func (e *CreditLimitError) Available() decimal.Decimal {
	avail := e.Limit.Sub(e.Outstanding)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// Shortfall is how far the request overshoots the available credit.
func (e *CreditLimitError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available())
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("order total %s exceeds available credit %s for customer %s (limit %s, outstanding %s, shortfall %s)",
		e.Requested.StringFixed(2), e.Available().StringFixed(2), e.CustomerID,
		e.Limit.StringFixed(2), e.Outstanding.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *CreditLimitError) Is(target error) bool { return target == ErrCreditLimitExceeded }

type InsufficientStockError struct {
	ProductID   int64
	ProductCode string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := fmt.Sprintf("product %d", e.ProductID)
	if e.ProductCode != "" {
		name = fmt.Sprintf("product %d (%s)", e.ProductID, e.ProductCode)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Kind buckets an error into the taxonomy used for responses, logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCreditLimitExceeded):
		return "credit_limit"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
