package observability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLog struct {
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu     *sync.Mutex
	fixed  []Field
	events *[]recordedLog
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{mu: &sync.Mutex{}, events: &[]recordedLog{}}
}

func (l *captureLogger) With(fields ...Field) Logger {
	return &captureLogger{mu: l.mu, fixed: append(append([]Field{}, l.fixed...), fields...), events: l.events}
}

func (l *captureLogger) record(msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]any)
	for _, f := range append(append([]Field{}, l.fixed...), fields...) {
		m[f.Key] = f.Value
	}
	*l.events = append(*l.events, recordedLog{msg: msg, fields: m})
}

func (l *captureLogger) Debug(msg string, fields ...Field) { l.record(msg, fields) }
func (l *captureLogger) Info(msg string, fields ...Field)  { l.record(msg, fields) }
func (l *captureLogger) Warn(msg string, fields ...Field)  { l.record(msg, fields) }
func (l *captureLogger) Error(msg string, fields ...Field) { l.record(msg, fields) }

type countingCounter struct {
	adds []map[string]string
}

func (c *countingCounter) Add(_ float64, labels ...Label) {
	m := make(map[string]string)
	for _, l := range labels {
		m[l.Key] = l.Value
	}
	c.adds = append(c.adds, m)
}

func (c *countingCounter) Bind(...Label) BoundCounter { return nopBoundCounter{} }

type fakeMetrics struct {
	requests *countingCounter
}

func (m fakeMetrics) Counter(name MetricKey) Counter {
	if name == MUsecaseRequests {
		return m.requests
	}
	return NopCounter()
}

func (fakeMetrics) Histogram(MetricKey) Histogram { return NopHistogram() }

type fakeObservability struct {
	logger  Logger
	metrics Metrics
}

func (f fakeObservability) Tracer() Tracer   { return NopTracer() }
func (f fakeObservability) Logger() Logger   { return f.logger }
func (f fakeObservability) Metrics() Metrics { return f.metrics }

func TestUseCaseRun(t *testing.T) {
	tests := []struct {
		name        string
		fail        string
		err         error
		wantOutcome string
		wantStatus  string
	}{
		{name: "success", wantOutcome: OutcomeSuccess, wantStatus: "OK"},
		{name: "explicit failure", fail: "ORDER_NOT_FOUND", err: errors.New("boom"), wantOutcome: OutcomeError, wantStatus: "ORDER_NOT_FOUND"},
		{name: "error without status", err: errors.New("boom"), wantOutcome: OutcomeError, wantStatus: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newCaptureLogger()
			counter := &countingCounter{}
			tel := fakeObservability{logger: logger, metrics: fakeMetrics{requests: counter}}

			_, run := StartUseCase(context.Background(), tel, nil, "order.create", "UC.CreateOrder")
			if tt.fail != "" {
				run.Fail(tt.fail)
			}
			run.AddFields(F("order_id", "abc"))
			run.End(tt.err)

			require.Len(t, counter.adds, 1)
			assert.Equal(t, "order.create", counter.adds[0]["use_case"])
			assert.Equal(t, tt.wantOutcome, counter.adds[0]["outcome"])

			require.Len(t, *logger.events, 1)
			entry := (*logger.events)[0]
			assert.Equal(t, "use_case_done", entry.msg)
			assert.Equal(t, "order.create", entry.fields["use_case"])
			assert.Equal(t, tt.wantStatus, entry.fields["status"])
			assert.Equal(t, "abc", entry.fields["order_id"])
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), entry.fields["error"])
			}
		})
	}
}

func TestStartUseCase_NilObservability(t *testing.T) {
	ctx, run := StartUseCase(context.Background(), nil, nil, "order.list", "UC.ListOrders")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { run.End(nil) })
}
