package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/logging"
)

// Error is the JSON error envelope.
type Error struct {
	Code      string
	Message   string
	Status    int
	Retryable bool
	Details   map[string]any
}

func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: code, Message: message, Status: status}
}

func (e Error) WithDetails(details map[string]any) Error {
	e.Details = details
	return e
}

func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	payload := map[string]any{
		"error":     e.Code,
		"message":   e.Message,
		"status":    e.Status,
		"retryable": e.Retryable,
	}
	if id := middleware.GetReqID(ctx); id != "" {
		payload["request_id"] = id
	}
	if len(e.Details) > 0 {
		payload["details"] = e.Details
	}
	writeJSON(w, e.Status, payload)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusClientClosedRequest is the nginx convention for a caller that went away mid-request.
const StatusClientClosedRequest = 499

// mapError turns an engine failure into a response. Only contention is retryable.
func mapError(err error) Error {
	var credit *ledger.CreditLimitError
	var stock *ledger.InsufficientStockError
	var transition *ledger.InvalidTransitionError

	switch {
	case errors.As(err, &credit):
		return NewError("credit_limit_exceeded", err.Error(), http.StatusUnprocessableEntity).WithDetails(map[string]any{
			"customer_id":         credit.CustomerID,
			"credit_limit":        credit.Limit.StringFixed(2),
			"outstanding_balance": credit.Outstanding.StringFixed(2),
			"requested":           credit.Requested.StringFixed(2),
			"available_credit":    credit.Available().StringFixed(2),
			"shortfall":           credit.Shortfall().StringFixed(2),
		})
	case errors.As(err, &stock):
		return NewError("insufficient_stock", err.Error(), http.StatusUnprocessableEntity).WithDetails(map[string]any{
			"product_id":   stock.ProductID,
			"product_code": stock.ProductCode,
			"requested":    stock.Requested,
			"available":    stock.Available,
		})
	case errors.As(err, &transition):
		return NewError("invalid_transition", err.Error(), http.StatusConflict).WithDetails(map[string]any{
			"from": transition.From,
			"to":   transition.To,
		})
	case errors.Is(err, ledger.ErrContention):
		e := NewError("contention", err.Error(), http.StatusConflict)
		e.Retryable = true
		return e
	case errors.Is(err, ledger.ErrAlreadyResolved):
		return NewError("already_resolved", err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrForbidden):
		return NewError("forbidden", "actor may not perform this operation", http.StatusForbidden)
	case errors.Is(err, ledger.ErrNotFound):
		return NewError("not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidInput):
		return NewError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrIntegrity):
		return NewError("integrity_violation", "the operation could not be completed", http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError("timeout", "request timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		return NewError("client_closed_request", "request cancelled by client", StatusClientClosedRequest)
	default:
		return NewError("internal", "internal error", http.StatusInternalServerError)
	}
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	e := mapError(err)
	switch {
	case e.Status == StatusClientClosedRequest:
		logging.FromContext(ctx).Debug("client went away", zap.Error(err))
	case e.Status >= http.StatusInternalServerError:
		logging.FromContext(ctx).Error("request failed", zap.String("kind", ledger.Kind(err)), zap.Error(err))
	}
	WriteError(ctx, w, e)
}
