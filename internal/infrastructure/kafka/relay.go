package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
)

const (
	peerKafka      = "kafka"
	componentRelay = "kafka-relay"
)

// DefaultWriteTimeout bounds one relayed write. The bus dispatches events on a
// single loop, so an unreachable broker stalls every later event for this long.
const DefaultWriteTimeout = time.Second

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Envelope is the value written for every relayed event.
type Envelope struct {
	Event     string    `json:"event"`
	RelayedAt time.Time `json:"relayedAt"`
	Payload   any       `json:"payload"`
}

// Relay forwards ledger events to a Kafka topic. Messages are keyed by
// aggregate id so every event of one order lands on the same partition.
type Relay struct {
	writer  MessageWriter
	log     observability.Logger
	now     func() time.Time
	timeout time.Duration

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	durations    map[string]observability.BoundHistogram
}

type RelayOption func(*Relay)

// WithWriteTimeout overrides DefaultWriteTimeout. Non-positive values are ignored.
func WithWriteTimeout(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRelay(writer MessageWriter, tel observability.Observability, opts ...RelayOption) *Relay {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	r := &Relay{
		writer:       writer,
		log:          tel.Logger().With(observability.F("component", componentRelay)),
		now:          func() time.Time { return time.Now().UTC() },
		timeout:      DefaultWriteTimeout,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		durations:    make(map[string]observability.BoundHistogram),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers the relay for each named event. Call it before the
// subscriber starts dispatching.
func (r *Relay) Subscribe(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		r.durations[name] = r.extHistogram.Bind(
			observability.L("peer", peerKafka),
			observability.L("endpoint", name),
		)
		sub.Subscribe(name, r.Handle)
	}
}

func (r *Relay) observeDuration(name string, seconds float64) {
	if h, ok := r.durations[name]; ok {
		h.Observe(seconds)
		return
	}
	r.extHistogram.Observe(seconds,
		observability.L("peer", peerKafka),
		observability.L("endpoint", name),
	)
}

func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	value, err := json.Marshal(Envelope{Event: name, RelayedAt: r.now(), Payload: e})
	if err != nil {
		return fmt.Errorf("kafka relay: encode %s: %w", name, err)
	}

	msg := kafka.Message{
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(name)}},
	}
	if keyed, ok := e.(domoutbox.Keyed); ok {
		msg.Key = []byte(keyed.AggregateID())
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err = r.writer.WriteMessages(writeCtx, msg)
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeError
	}
	r.extCounter.Add(1,
		observability.L("peer", peerKafka),
		observability.L("endpoint", name),
		observability.L("outcome", outcome),
	)
	r.observeDuration(name, time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("kafka relay: write %s: %w", name, err)
	}
	logctx.FromOr(ctx, r.log).Debug("event_relayed",
		observability.F("key", string(msg.Key)),
	)
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
