package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Exists(ctx context.Context, id string) bool
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	// List returns copies of all orders in insertion order.
	List(ctx context.Context) ([]*Order, error)
	// WithWriter runs fn while holding the ledger's single-writer lock.
	// Nested calls sharing the callback's context do not block.
	WithWriter(ctx context.Context, fn func(ctx context.Context) error) error
}
