package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-ledger/internal/application"
	"github.com/Zhima-Mochi/minishop-ledger/internal/clock"
	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	spanPrefix         = "UC."
)

// CreateOrderUseCase allocates an id and stores a new open order.
type CreateOrderUseCase struct {
	repo      domain.Repository
	ids       *IDAllocator
	clock     clock.Clock
	publisher domoutbox.Publisher
	tel       observability.Observability

	// Base logger with fixed fields prebound.
	log observability.Logger
}

// NewCreateOrderUseCase wires the dependencies required to execute the use case.
func NewCreateOrderUseCase(
	repo domain.Repository,
	ids *IDAllocator,
	clk clock.Clock,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &CreateOrderUseCase{
		repo:      repo,
		ids:       ids,
		clock:     clk,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", orderService)),
	}
}

type CreateOrderInput struct {
	Description string
	Total       decimal.Decimal
}

// Execute validates the input, allocates a free id and inserts the order.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := observability.StartUseCase(ctx, uc.tel, logctx.FromOr(ctx, uc.log), useCaseOrderCreate, spanPrefix+"CreateOrder",
		attribute.String("order.total", cmd.Total.String()),
	)
	run.AddFields(observability.F("total", cmd.Total.String()))
	defer func() { run.End(err) }()

	var created *domain.Order
	err = uc.repo.WithWriter(ctx, func(ctx context.Context) error {
		id, err := uc.ids.Allocate(ctx, uc.repo.Exists)
		if err != nil {
			return err
		}

		entity, err := domain.New(id, cmd.Description, cmd.Total, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := uc.repo.Insert(ctx, entity); err != nil {
			return fmt.Errorf("order: insert: %w", err)
		}
		created = entity

		if pubErr := application.PublishEvent(ctx, uc.publisher, uc.tel.Metrics(), domain.NewOrderCreatedEvent(entity)); pubErr != nil {
			run.Status("EVENT_PUBLISH_FAILED")
			run.AddFields(observability.F("event_publish_error", pubErr.Error()))
		}
		return nil
	})
	if err != nil {
		run.Fail(createFailureStatus(err))
		return nil, err
	}

	run.AddFields(observability.F("order_id", created.ID))
	run.Span().SetAttributes(attribute.String("order.status", string(created.Status())))
	run.Span().AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", created.ID)),
	)
	return created, nil
}

func createFailureStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidDescription):
		return "DESCRIPTION_REQUIRED"
	case errors.Is(err, domain.ErrInvalidTotal):
		return "TOTAL_INVALID"
	case errors.Is(err, domain.ErrAmountPrecision):
		return "TOTAL_PRECISION"
	case errors.Is(err, ErrAllocationExhausted):
		return "ID_ALLOCATION_EXHAUSTED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_INSERT_FAILED"
	}
}
