package order

import (
	"context"
	"strings"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *captureSubscriber) Subscribe(eventName string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]domoutbox.Handler)
	}
	s.handlers[eventName] = h
}

func TestSettlementWorker_CountsSettledOrders(t *testing.T) {
	l := newLedger(t, nil)
	sub := &captureSubscriber{}
	NewSettlementWorker(sub, l.tel).Start()

	h := sub.handlers["order.payment_applied"]
	require.NotNil(t, h)

	o, err := domain.New("o1", "Widget", dec("10"), fixedNow)
	require.NoError(t, err)

	partial := dompay.New("p1", dec("4"), "", fixedNow)
	require.NoError(t, o.ApplyPayment(partial))
	require.NoError(t, h(context.Background(), domain.NewPaymentAppliedEvent(o, partial)))

	final := dompay.New("p2", dec("6"), "", fixedNow)
	require.NoError(t, o.ApplyPayment(final))
	require.NoError(t, h(context.Background(), domain.NewPaymentAppliedEvent(o, final)))

	require.NoError(t, h(context.Background(), domain.NewOrderCreatedEvent(o)))

	expected := `
# HELP orders_settled_total Count of orders whose balance due reached zero.
# TYPE orders_settled_total counter
orders_settled_total 1
`
	require.NoError(t, testutil.GatherAndCompare(l.reg, strings.NewReader(expected), "orders_settled_total"))
}
