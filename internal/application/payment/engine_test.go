package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-ledger/internal/clock"
	domorder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("pay-%d", s.n)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(t *testing.T, id, total string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, "Widget", dec(total), fixedNow)
	require.NoError(t, err)
	return o
}

func TestEngine_Apply(t *testing.T) {
	engine := NewEngine(&seqIDs{}, clock.NewFixed(fixedNow))
	o := newOrder(t, "o1", "100")

	p, err := engine.Apply(context.Background(), o, dec("40"), "deposit")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, "deposit", p.Note)
	assert.Equal(t, fixedNow, p.AppliedAt)
	assert.True(t, o.BalanceDue.Equal(dec("60")))
	require.Len(t, o.PaymentsApplied, 1)
	assert.Equal(t, p, o.PaymentsApplied[0])
}

func TestEngine_Apply_Failures(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		prior   string
		amount  string
		wantErr error
	}{
		{name: "zero amount", total: "100", amount: "0", wantErr: domorder.ErrInvalidAmount},
		{name: "negative amount", total: "100", amount: "-3", wantErr: domorder.ErrInvalidAmount},
		{name: "invalid amount on settled order", total: "10", prior: "10", amount: "0", wantErr: domorder.ErrInvalidInput},
		{name: "settled order", total: "10", prior: "10", amount: "1", wantErr: domorder.ErrNoBalanceDue},
		{name: "overpayment", total: "100", prior: "40", amount: "500", wantErr: domorder.ErrPaymentExceedsBalance},
		{name: "sub-cent amount", total: "100", amount: "0.005", wantErr: domorder.ErrAmountPrecision},
		{name: "huge exponent", total: "100", amount: "1e10000000", wantErr: domorder.ErrAmountPrecision},
		{name: "sub-cent amount on settled order", total: "10", prior: "10", amount: "1e-1000000", wantErr: domorder.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(&seqIDs{}, clock.NewFixed(fixedNow))
			o := newOrder(t, "o1", tt.total)
			if tt.prior != "" {
				_, err := engine.Apply(context.Background(), o, dec(tt.prior), "")
				require.NoError(t, err)
			}
			before := o.Clone()

			_, err := engine.Apply(context.Background(), o, dec(tt.amount), "")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, o)
		})
	}
}

func TestEngine_Apply_ExceedsMessage(t *testing.T) {
	engine := NewEngine(&seqIDs{}, nil)
	o := newOrder(t, "o1", "100")
	_, err := engine.Apply(context.Background(), o, dec("40"), "")
	require.NoError(t, err)

	_, err = engine.Apply(context.Background(), o, dec("500"), "")
	var exceeds *domorder.PaymentExceedsBalanceError
	require.True(t, errors.As(err, &exceeds))
	assert.Contains(t, err.Error(), "payment of 500 exceeds balance due of 60;")
}

func TestEngine_Apply_CanceledContext(t *testing.T) {
	engine := NewEngine(&seqIDs{}, clock.NewFixed(fixedNow))
	o := newOrder(t, "o1", "100")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Apply(ctx, o, dec("1"), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, o.PaymentsApplied)
}
