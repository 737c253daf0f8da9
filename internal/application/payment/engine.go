package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-ledger/internal/clock"
	domorder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// Engine applies a single payment against an order it has already loaded.
// It never touches storage; callers persist the order on success.
type Engine struct {
	ids   IDGenerator
	clock clock.Clock
}

func NewEngine(ids IDGenerator, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Engine{ids: ids, clock: clk}
}

// Apply records amount against o. On error o is unchanged.
func (e *Engine) Apply(ctx context.Context, o *domorder.Order, amount decimal.Decimal, note string) (dompay.Payment, error) {
	if o == nil {
		return dompay.Payment{}, errors.New("payment: order is required")
	}
	if err := ctx.Err(); err != nil {
		return dompay.Payment{}, err
	}
	if !amount.IsPositive() {
		return dompay.Payment{}, domorder.ErrInvalidAmount
	}
	if err := domorder.CheckAmountPrecision(amount); err != nil {
		return dompay.Payment{}, err
	}

	p := dompay.New(e.ids.NewID(), amount, note, e.clock.Now())
	if err := o.ApplyPayment(p); err != nil {
		return dompay.Payment{}, err
	}
	return p, nil
}
