package application

import (
	"context"
	"errors"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
)

const (
	PublishPeer    = "outbox"
	PublishTimeout = 300 * time.Millisecond
)

// PublishEvent hands e to pub within PublishTimeout and records the attempt as
// an external request. A nil publisher is a no-op.
func PublishEvent(ctx context.Context, pub domoutbox.Publisher, metrics observability.Metrics, e domoutbox.Event) error {
	if pub == nil || e == nil {
		return nil
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}

	pubCtx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	start := time.Now()
	outcome := observability.OutcomeSuccess
	err := pub.Publish(pubCtx, e)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = observability.OutcomeError
	}

	metrics.Counter(observability.MExternalRequests).Add(1,
		observability.L("peer", PublishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	metrics.Histogram(observability.MExternalRequestDuration).Observe(time.Since(start).Seconds(),
		observability.L("peer", PublishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}
