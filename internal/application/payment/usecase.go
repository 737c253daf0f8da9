package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-ledger/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService      = "payment-service"
	useCasePaymentApply = "payment.apply"
	spanPrefix          = "UC."
)

type ApplyPaymentInput struct {
	OrderID string
	Amount  decimal.Decimal
	Note    string
}

type ApplyPaymentResult struct {
	Payment dompay.Payment
	// Order is the state after the payment was stored.
	Order *domorder.Order
}

// ApplyPaymentUseCase loads an order, runs the Engine against it and stores
// the result, all under the ledger's writer lock.
type ApplyPaymentUseCase struct {
	repo      domorder.Repository
	engine    *Engine
	publisher domoutbox.Publisher
	tel       observability.Observability
	log       observability.Logger
}

var _ application.UseCase[ApplyPaymentInput, *ApplyPaymentResult] = (*ApplyPaymentUseCase)(nil)

func NewApplyPaymentUseCase(
	repo domorder.Repository,
	engine *Engine,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *ApplyPaymentUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ApplyPaymentUseCase{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", paymentService)),
	}
}

func (uc *ApplyPaymentUseCase) Execute(ctx context.Context, cmd ApplyPaymentInput) (_ *ApplyPaymentResult, err error) {
	ctx, run := observability.StartUseCase(ctx, uc.tel, logctx.FromOr(ctx, uc.log), useCasePaymentApply, spanPrefix+"ApplyPayment",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.amount", cmd.Amount.String()),
	)
	run.AddFields(
		observability.F("order_id", cmd.OrderID),
		observability.F("amount", cmd.Amount.String()),
	)
	defer func() { run.End(err) }()

	var result *ApplyPaymentResult
	err = uc.repo.WithWriter(ctx, func(ctx context.Context) error {
		order, err := uc.repo.Get(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		p, err := uc.engine.Apply(ctx, order, cmd.Amount, cmd.Note)
		if err != nil {
			return err
		}
		if err := uc.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("payment: store order: %w", err)
		}
		result = &ApplyPaymentResult{Payment: p, Order: order}

		// Published while the writer is held so events keep ledger order.
		if pubErr := application.PublishEvent(ctx, uc.publisher, uc.tel.Metrics(), domorder.NewPaymentAppliedEvent(order, p)); pubErr != nil {
			run.Status("EVENT_PUBLISH_FAILED")
			run.AddFields(observability.F("event_publish_error", pubErr.Error()))
		}
		return nil
	})
	if err != nil {
		run.Fail(failureStatus(err))
		return nil, err
	}

	run.AddFields(
		observability.F("payment_id", result.Payment.ID),
		observability.F("balance_due", result.Order.BalanceDue.String()),
	)
	run.Span().SetAttributes(attribute.String("order.status", string(result.Order.Status())))
	run.Span().AddEvent("payment.applied",
		trace.WithAttributes(attribute.String("payment.id", result.Payment.ID)),
	)
	return result, nil
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, domorder.ErrInvalidInput):
		return "AMOUNT_INVALID"
	case errors.Is(err, domorder.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domorder.ErrNoBalanceDue):
		return "NO_BALANCE_DUE"
	case errors.Is(err, domorder.ErrPaymentExceedsBalance):
		return "PAYMENT_EXCEEDS_BALANCE"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "ORDER_UPDATE_FAILED"
	}
}
