package services

import (
	"github.com/shopspring/decimal"

	"starkpay/internal/money"
)

var vatRate = decimal.RequireFromString("0.075")

// TransferFee is the bank transfer fee for amount, VAT included. Tiers are
// inclusive: up to 5,000 pays 10, up to 50,000 pays 25, above pays 50.
func TransferFee(amount int64) int64 {
	var base int64
	switch {
	case amount <= money.Naira(5_000):
		base = money.Naira(10)
	case amount <= money.Naira(50_000):
		base = money.Naira(25)
	default:
		base = money.Naira(50)
	}
	vat := decimal.NewFromInt(base).Mul(vatRate).Round(0).IntPart()
	return base + vat
}
