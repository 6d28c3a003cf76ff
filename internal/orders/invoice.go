package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

const PaymentTermsDays = 30

var (
	TaxRate       = decimal.RequireFromString("0.10")
	taxPercentage = decimal.NewFromInt(10)
)

func OrderNumber(orderID int64, created time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", created.UTC().Format("20060102"), orderID)
}

func InvoiceNumber(orderID int64, created time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", created.UTC().Format("20060102"), orderID)
}

// InvoiceGenerator applies the fixed invoicing policy: 10% tax, 30 day terms.
type InvoiceGenerator struct{}

func (InvoiceGenerator) Generate(order ledger.Order, now time.Time) ledger.Invoice {
	now = now.UTC()
	sub := order.TotalAmount
	tax := ledger.RoundMoney(sub.Mul(TaxRate))
	total := ledger.RoundMoney(sub.Mul(decimal.NewFromInt(1).Add(TaxRate)))
	return ledger.Invoice{
		InvoiceNumber:     InvoiceNumber(order.ID, order.OrderDate),
		OrderID:           order.ID,
		CustomerID:        order.CustomerID,
		InvoiceDate:       now,
		DueDate:           now.AddDate(0, 0, PaymentTermsDays),
		SubTotal:          sub,
		DiscountAmount:    decimal.Zero,
		TaxPercentage:     taxPercentage,
		TaxAmount:         tax,
		TotalAmount:       total,
		AmountPaid:        decimal.Zero,
		OutstandingAmount: total,
		Status:            ledger.InvoiceGenerated,
	}
}

func checkInvoice(inv ledger.Invoice) error {
	if !inv.OutstandingAmount.Equal(inv.TotalAmount.Sub(inv.AmountPaid)) || inv.OutstandingAmount.IsNegative() {
		return fmt.Errorf("%w: invoice %s outstanding %s does not match total %s - paid %s",
			ledger.ErrIntegrity, inv.InvoiceNumber, inv.OutstandingAmount, inv.TotalAmount, inv.AmountPaid)
	}
	return nil
}
