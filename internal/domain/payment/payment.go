package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an immutable application of money against an order's balance.
type Payment struct {
	ID        string
	Amount    decimal.Decimal
	Note      string
	AppliedAt time.Time
}

func New(id string, amount decimal.Decimal, note string, appliedAt time.Time) Payment {
	return Payment{
		ID:        id,
		Amount:    amount,
		Note:      note,
		AppliedAt: appliedAt.UTC(),
	}
}
