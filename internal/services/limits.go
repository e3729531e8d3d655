package services

import (
	"time"

	"starkpay/internal/money"
)

// Amounts are kobo.
var (
	MaxCollectionAmount  = money.Naira(15_000)
	PasswordThreshold    = money.Naira(500)
	DailyCollectionLimit = money.Naira(50_000)
	MinimumWithdrawal    = money.Naira(100)
	MaxFundingAmount     = money.Naira(50_000)
	MaxWalletBalance     = money.Naira(300_000)
)

// SettlementLag is how long collected funds stay out of a business's
// withdrawable balance.
const SettlementLag = 48 * time.Hour
