package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
)

const (
	componentOutbox = "outbox"

	DefaultQueueSize   = 1024
	DefaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

var ErrBusStopped = errors.New("outbox: bus stopped")

// ContextDecorator prepares the context a handler runs with, typically to
// attach an event-scoped logger.
type ContextDecorator func(ctx context.Context, e domoutbox.Event) context.Context

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithContextDecorator(d ContextDecorator) Option {
	return func(b *Bus) { b.decorate = d }
}

// Bus is an in-memory event bus. Events are queued by Publish and fanned out
// to subscribers on a single dispatch goroutine, so subscribers see events in
// publish order. Nothing is persisted.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queue       chan domoutbox.Event
	queueSize   int
	concurrency int
	decorate    ContextDecorator

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	done      chan struct{}

	log observability.Logger
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queueSize:   DefaultQueueSize,
		concurrency: DefaultConcurrency,
		stopped:     make(chan struct{}),
		done:        make(chan struct{}),
		log:         logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan domoutbox.Event, b.queueSize)
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started",
			observability.F("queue_size", b.queueSize),
		)
	})
}

// Stop refuses new events, delivers what is already queued and waits for the
// dispatch loop to finish or ctx to expire.
func (b *Bus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stopped) })
	// A bus that was never started has no loop to wait for.
	b.startOnce.Do(func() { close(b.done) })

	select {
	case <-b.done:
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
		return nil
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_bus_stop_timeout",
			observability.F("pending", len(b.queue)),
		)
		return ctx.Err()
	}
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	select {
	case <-b.stopped:
		return ErrBusStopped
	default:
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-b.stopped:
		return ErrBusStopped
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted",
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			b.fanout(ctx, e)
		case <-b.stopped:
			for {
				select {
				case e := <-b.queue:
					b.fanout(ctx, e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	ctx = logctx.With(ctx, logger)
	if b.decorate != nil {
		ctx = b.decorate(ctx, e)
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logctx.FromOr(ctx, logger).Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logctx.FromOr(ctx, logger).Warn("event_handler_error",
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()

	logger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
