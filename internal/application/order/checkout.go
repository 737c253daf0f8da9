package order

import (
	"context"
	"fmt"

	apppayment "github.com/Zhima-Mochi/minishop-ledger/internal/application/payment"
	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderCheckout = "order.checkout"

// UnpaidOrderError is returned when checkout created the order but could not
// apply the payment. The order stays in the ledger with its full balance due.
type UnpaidOrderError struct {
	OrderID string
	Err     error
}

func (e *UnpaidOrderError) Error() string {
	return fmt.Sprintf("order %s was created but the payment was not applied: %v", e.OrderID, e.Err)
}

func (e *UnpaidOrderError) Unwrap() error { return e.Err }

type PlaceOrderAndPayInput struct {
	Description   string
	Total         decimal.Decimal
	PaymentAmount decimal.Decimal
	Note          string
}

// PlaceOrderAndPayUseCase creates an order and pays it in one writer scope.
type PlaceOrderAndPayUseCase struct {
	repo   domain.Repository
	create OrderCreator
	pay    PaymentApplier
	tel    observability.Observability
	log    observability.Logger
}

func NewPlaceOrderAndPayUseCase(
	repo domain.Repository,
	create OrderCreator,
	pay PaymentApplier,
	tel observability.Observability,
) *PlaceOrderAndPayUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &PlaceOrderAndPayUseCase{
		repo:   repo,
		create: create,
		pay:    pay,
		tel:    tel,
		log:    tel.Logger().With(observability.F("service", orderService)),
	}
}

// Execute returns the paid order. When only the payment fails the error is an
// *UnpaidOrderError wrapping the payment failure.
func (uc *PlaceOrderAndPayUseCase) Execute(ctx context.Context, cmd PlaceOrderAndPayInput) (_ *domain.Order, err error) {
	ctx, run := observability.StartUseCase(ctx, uc.tel, logctx.FromOr(ctx, uc.log), useCaseOrderCheckout, spanPrefix+"PlaceOrderAndPay",
		attribute.String("order.total", cmd.Total.String()),
		attribute.String("payment.amount", cmd.PaymentAmount.String()),
	)
	defer func() { run.End(err) }()

	var paid *domain.Order
	err = uc.repo.WithWriter(ctx, func(ctx context.Context) error {
		created, err := uc.create.Execute(ctx, CreateOrderInput{
			Description: cmd.Description,
			Total:       cmd.Total,
		})
		if err != nil {
			run.Fail("CREATE_FAILED")
			return err
		}
		run.AddFields(observability.F("order_id", created.ID))

		res, err := uc.pay.Execute(ctx, apppayment.ApplyPaymentInput{
			OrderID: created.ID,
			Amount:  cmd.PaymentAmount,
			Note:    cmd.Note,
		})
		if err != nil {
			run.Fail("PAYMENT_FAILED")
			return &UnpaidOrderError{OrderID: created.ID, Err: err}
		}
		paid = res.Order
		return nil
	})
	if err != nil {
		return nil, err
	}

	run.Span().SetAttributes(
		attribute.String("order.id", paid.ID),
		attribute.String("order.status", string(paid.Status())),
	)
	return paid, nil
}
