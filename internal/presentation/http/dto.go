package httppresentation

import (
	"encoding/json"
	"time"

	domainOrder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/minishop-ledger/internal/domain/payment"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
}

type applyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type paymentInputRequest struct {
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
	Note    string          `json:"note"`
}

type checkoutRequest struct {
	Description   string          `json:"description"`
	Total         decimal.Decimal `json:"total"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	Note          string          `json:"note"`
}

type orderResponse struct {
	ID              string            `json:"id"`
	Description     string            `json:"description"`
	Total           json.Number       `json:"total"`
	BalanceDue      json.Number       `json:"balanceDue"`
	PaymentsApplied []paymentResponse `json:"paymentsApplied"`
}

type paymentResponse struct {
	ID        string      `json:"id"`
	Amount    json.Number `json:"amount"`
	Note      string      `json:"note"`
	AppliedAt string      `json:"appliedAt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	OrderID string `json:"orderId,omitempty"`
}

// money renders an amount as a bare JSON number without float rounding.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toPaymentResponse(p domainPayment.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		Amount:    money(p.Amount),
		Note:      p.Note,
		AppliedAt: p.AppliedAt.UTC().Format(time.RFC3339),
	}
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	payments := make([]paymentResponse, 0, len(o.PaymentsApplied))
	for _, p := range o.PaymentsApplied {
		payments = append(payments, toPaymentResponse(p))
	}
	return orderResponse{
		ID:              o.ID,
		Description:     o.Description,
		Total:           money(o.Total),
		BalanceDue:      money(o.BalanceDue),
		PaymentsApplied: payments,
	}
}

func toOrderResponses(orders []*domainOrder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}
