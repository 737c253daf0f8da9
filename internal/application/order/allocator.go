package order

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxAttempts bounds how many random ids are drawn before giving up.
const DefaultMaxAttempts = 8

var ErrAllocationExhausted = errors.New("order: id allocation exhausted")

// IDAllocator draws random ids until one is not taken.
type IDAllocator struct {
	gen         IDGenerator
	maxAttempts int
}

func NewIDAllocator(gen IDGenerator, maxAttempts int) *IDAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &IDAllocator{gen: gen, maxAttempts: maxAttempts}
}

// Allocate returns the first generated id for which taken reports false.
// Callers must hold the ledger writer so the id stays free until inserted.
func (a *IDAllocator) Allocate(ctx context.Context, taken func(ctx context.Context, id string) bool) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := a.gen.NewID()
		if !taken(ctx, id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}
