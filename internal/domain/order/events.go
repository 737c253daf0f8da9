package order

import (
	"time"

	"github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once a new order has been stored. OccurredAt
// is the order's CreatedAt.
type OrderCreatedEvent struct {
	OrderID     string          `json:"orderId"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func (e OrderCreatedEvent) AggregateID() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		Description: o.Description,
		Total:       o.Total,
		OccurredAt:  o.CreatedAt,
	}
}

// PaymentAppliedEvent is emitted after a payment reduced an order's balance.
// OccurredAt is the payment's AppliedAt.
type PaymentAppliedEvent struct {
	OrderID    string          `json:"orderId"`
	PaymentID  string          `json:"paymentId"`
	Amount     decimal.Decimal `json:"amount"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
	Settled    bool            `json:"settled"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func (PaymentAppliedEvent) EventName() string { return "order.payment_applied" }

func (e PaymentAppliedEvent) AggregateID() string { return e.OrderID }

func NewPaymentAppliedEvent(o *Order, p payment.Payment) PaymentAppliedEvent {
	return PaymentAppliedEvent{
		OrderID:    o.ID,
		PaymentID:  p.ID,
		Amount:     p.Amount,
		BalanceDue: o.BalanceDue,
		Settled:    o.Status() == StatusSettled,
		OccurredAt: p.AppliedAt,
	}
}
