package orders

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// CreditValidator decides whether a customer can carry an additional amount.
type CreditValidator struct{}

// Validate allows the amount iff outstanding + amount <= limit.
func (CreditValidator) Validate(c ledger.Customer, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ledger.Invalid("credit check amount must not be negative, got %s", amount.StringFixed(2))
	}
	if c.OutstandingBalance.Add(amount).GreaterThan(c.CreditLimit) {
		return &ledger.CreditLimitError{
			CustomerID:  c.ID,
			Limit:       c.CreditLimit,
			Outstanding: c.OutstandingBalance,
			Requested:   amount,
		}
	}
	return nil
}
