package order

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderList = "order.list"
	useCaseOrderGet  = "order.get"
)

type ListOrdersInput struct{}

// ListOrdersUseCase returns every order in creation order.
type ListOrdersUseCase struct {
	repo domain.Repository
	tel  observability.Observability
	log  observability.Logger
}

func NewListOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListOrdersUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ListOrdersUseCase{
		repo: repo,
		tel:  tel,
		log:  tel.Logger().With(observability.F("service", orderService)),
	}
}

func (uc *ListOrdersUseCase) Execute(ctx context.Context, _ ListOrdersInput) (_ []*domain.Order, err error) {
	ctx, run := observability.StartUseCase(ctx, uc.tel, logctx.FromOr(ctx, uc.log), useCaseOrderList, spanPrefix+"ListOrders")
	defer func() { run.End(err) }()

	orders, err := uc.repo.List(ctx)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, err
	}
	run.AddFields(observability.F("count", len(orders)))
	return orders, nil
}

type GetOrderInput struct {
	OrderID string
}

type GetOrderUseCase struct {
	repo domain.Repository
	tel  observability.Observability
	log  observability.Logger
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &GetOrderUseCase{
		repo: repo,
		tel:  tel,
		log:  tel.Logger().With(observability.F("service", orderService)),
	}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := observability.StartUseCase(ctx, uc.tel, logctx.FromOr(ctx, uc.log), useCaseOrderGet, spanPrefix+"GetOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	run.AddFields(observability.F("order_id", cmd.OrderID))
	defer func() { run.End(err) }()

	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_NOT_FOUND")
		return nil, err
	}
	return o, nil
}
