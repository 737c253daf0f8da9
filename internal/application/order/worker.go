package order

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const (
	workerService             = "order-worker"
	useCaseSettlementObserved = "order.worker.settlement"
)

// SettlementWorker watches applied payments and records orders whose balance
// due reached zero. It never writes to the ledger.
type SettlementWorker struct {
	subscriber domoutbox.Subscriber
	tel        observability.Observability
	log        observability.Logger
	settled    observability.BoundCounter
}

func NewSettlementWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *SettlementWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &SettlementWorker{
		subscriber: subscriber,
		tel:        tel,
		log:        tel.Logger().With(observability.F("service", workerService)),
		settled:    tel.Metrics().Counter(observability.MOrdersSettled).Bind(),
	}
}

func (w *SettlementWorker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domain.PaymentAppliedEvent{}.EventName(), w.handlePaymentApplied)
}

func (w *SettlementWorker) handlePaymentApplied(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.PaymentAppliedEvent)
	if !ok || !evt.Settled {
		return nil
	}

	ctx, run := observability.StartUseCase(ctx, w.tel, logctx.FromOr(ctx, w.log), useCaseSettlementObserved, spanPrefix+"OrderSettled",
		attribute.String("order.id", evt.OrderID),
		attribute.String("event", e.EventName()),
	)
	defer func() { run.End(err) }()

	w.settled.Add(1)
	run.AddFields(
		observability.F("order_id", evt.OrderID),
		observability.F("payment_id", evt.PaymentID),
	)
	logctx.FromOr(ctx, w.log).Info("order_settled",
		observability.F("order_id", evt.OrderID),
		observability.F("final_payment", evt.Amount.String()),
	)
	return nil
}
