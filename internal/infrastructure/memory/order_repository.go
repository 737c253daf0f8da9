package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
)

// OrderRepository is the in-memory ledger. Readers share mu; writers are
// serialized through writer for the whole read-modify-write cycle.
type OrderRepository struct {
	writer sync.Mutex

	mu     sync.RWMutex
	orders map[string]*domain.Order
	seq    []string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

type writerKey struct{}

func (r *OrderRepository) WithWriter(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(writerKey{}).(*OrderRepository); owner == r {
		return fn(ctx)
	}

	r.writer.Lock()
	defer r.writer.Unlock()

	return fn(context.WithValue(ctx, writerKey{}, r))
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	r.orders[order.ID] = order.Clone()
	r.seq = append(r.seq, order.ID)
	return nil
}

func (r *OrderRepository) Exists(ctx context.Context, id string) bool {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.orders[id]
	return ok
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; !exists {
		return domain.ErrNotFound
	}

	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.seq))
	for _, id := range r.seq {
		out = append(out, r.orders[id].Clone())
	}
	return out, nil
}

func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seq)
}
