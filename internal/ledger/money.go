package ledger

import "github.com/shopspring/decimal"

const moneyPlaces = 2

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// LineTotal is quantity × unit price, rounded to cents.
func LineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}
