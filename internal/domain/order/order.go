package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput          = errors.New("order: invalid input")
	ErrInvalidDescription    = fmt.Errorf("%w: description is required", ErrInvalidInput)
	ErrInvalidTotal          = fmt.Errorf("%w: total must be greater than zero", ErrInvalidInput)
	ErrInvalidAmount         = fmt.Errorf("%w: payment amount must be greater than zero", ErrInvalidInput)
	ErrAmountPrecision       = fmt.Errorf("%w: amount must have at most 16 integer digits and 2 decimal places", ErrInvalidInput)
	ErrNotFound              = errors.New("order: not found")
	ErrConflict              = errors.New("order: duplicate id")
	ErrNoBalanceDue          = errors.New("order: no balance due")
	ErrPaymentExceedsBalance = errors.New("order: payment exceeds balance due")
)

// Currency precision for totals and payment amounts.
const (
	MaxAmountScale  = 2
	MaxAmountDigits = 18
)

// CheckAmountPrecision reports ErrAmountPrecision when d cannot be expressed
// within the currency bounds. Trailing zeros beyond the scale are accepted.
// Exponent and coefficient size are checked before any rescale.
func CheckAmountPrecision(d decimal.Decimal) error {
	exp := int(d.Exponent())
	if exp < -(MaxAmountScale + MaxAmountDigits) {
		return ErrAmountPrecision
	}
	if d.NumDigits()+exp > MaxAmountDigits-MaxAmountScale {
		return ErrAmountPrecision
	}
	if exp < -MaxAmountScale && !d.Truncate(MaxAmountScale).Equal(d) {
		return ErrAmountPrecision
	}
	return nil
}

// PaymentExceedsBalanceError reports an overpayment attempt. The message is
// shown to API callers as-is.
type PaymentExceedsBalanceError struct {
	Attempted  decimal.Decimal
	BalanceDue decimal.Decimal
}

func (e *PaymentExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment of %s exceeds balance due of %s; resubmit with a corrected amount",
		e.Attempted.String(), e.BalanceDue.String())
}

func (e *PaymentExceedsBalanceError) Is(target error) bool {
	return target == ErrPaymentExceedsBalance
}

type Status string

const (
	StatusOpen    Status = "open"
	StatusSettled Status = "settled"
)

type Order struct {
	ID              string
	Description     string
	Total           decimal.Decimal
	BalanceDue      decimal.Decimal
	PaymentsApplied []payment.Payment
	CreatedAt       time.Time
}

func New(id, description string, total decimal.Decimal, now time.Time) (*Order, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrInvalidDescription
	}
	if !total.IsPositive() {
		return nil, ErrInvalidTotal
	}
	if err := CheckAmountPrecision(total); err != nil {
		return nil, err
	}

	return &Order{
		ID:              id,
		Description:     description,
		Total:           total,
		BalanceDue:      total,
		PaymentsApplied: []payment.Payment{},
		CreatedAt:       now.UTC(),
	}, nil
}

func (o *Order) Status() Status {
	return o.state().Status()
}

// ApplyPayment appends p and reduces the balance due. On error the order is
// left untouched.
func (o *Order) ApplyPayment(p payment.Payment) error {
	if _, err := o.state().OnPayment(o, p); err != nil {
		return err
	}
	return nil
}

// Paid returns the sum of all applied payments.
func (o *Order) Paid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range o.PaymentsApplied {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.PaymentsApplied = make([]payment.Payment, len(o.PaymentsApplied))
	copy(clone.PaymentsApplied, o.PaymentsApplied)
	return &clone
}

func (o *Order) state() OrderState {
	if o.BalanceDue.IsPositive() {
		return openState{}
	}
	return settledState{}
}
