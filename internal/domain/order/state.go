package order

import "github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"

// OrderState implements the state pattern for balance transitions.
type OrderState interface {
	Status() Status
	OnPayment(o *Order, p payment.Payment) (OrderState, error)
}

type openState struct{}

func (openState) Status() Status { return StatusOpen }

func (openState) OnPayment(o *Order, p payment.Payment) (OrderState, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := CheckAmountPrecision(p.Amount); err != nil {
		return nil, err
	}
	if p.Amount.GreaterThan(o.BalanceDue) {
		return nil, &PaymentExceedsBalanceError{Attempted: p.Amount, BalanceDue: o.BalanceDue}
	}

	o.PaymentsApplied = append(o.PaymentsApplied, p)
	o.BalanceDue = o.BalanceDue.Sub(p.Amount)

	if o.BalanceDue.IsZero() {
		return settledState{}, nil
	}
	return openState{}, nil
}

type settledState struct{}

func (settledState) Status() Status { return StatusSettled }

func (settledState) OnPayment(*Order, payment.Payment) (OrderState, error) {
	return nil, ErrNoBalanceDue
}
