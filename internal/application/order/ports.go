package order

import (
	"github.com/Zhima-Mochi/minishop-ledger/internal/application"
	apppayment "github.com/Zhima-Mochi/minishop-ledger/internal/application/payment"
	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
)

type IDGenerator interface {
	NewID() string
}

// PaymentApplier is the payment use case as seen by checkout.
type PaymentApplier = application.UseCase[apppayment.ApplyPaymentInput, *apppayment.ApplyPaymentResult]

// OrderCreator is the create use case as seen by checkout.
type OrderCreator = application.UseCase[CreateOrderInput, *domain.Order]
