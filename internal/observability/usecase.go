package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UseCaseRun tracks a single use case execution: one span, the RED metrics
// usecase_requests_total/usecase_duration_seconds and a closing
// "use_case_done" log line.
type UseCaseRun struct {
	name   string
	ctx    context.Context
	span   trace.Span
	logger Logger
	start  time.Time

	reqCounter   Counter
	durHistogram Histogram

	outcome string
	status  string
	fields  []Field
}

// StartUseCase opens a span named spanName and returns the derived context.
// base should already carry request-scoped fields.
func StartUseCase(
	ctx context.Context,
	tel Observability,
	base Logger,
	useCase string,
	spanName string,
	attrs ...attribute.KeyValue,
) (context.Context, *UseCaseRun) {
	if tel == nil {
		tel = Nop()
	}
	if base == nil {
		base = tel.Logger()
	}

	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := tel.Tracer().Start(ctx, spanName, attrs...)

	metrics := tel.Metrics()
	return ctx, &UseCaseRun{
		name:         useCase,
		ctx:          ctx,
		span:         span,
		logger:       base.With(F("use_case", useCase)),
		start:        time.Now(),
		reqCounter:   metrics.Counter(MUsecaseRequests),
		durHistogram: metrics.Histogram(MUsecaseDuration),
		outcome:      OutcomeSuccess,
		status:       "OK",
	}
}

func (r *UseCaseRun) Logger() Logger { return r.logger }

func (r *UseCaseRun) Span() trace.Span { return r.span }

// Fail marks the run as failed with a machine readable status.
func (r *UseCaseRun) Fail(status string) {
	r.outcome, r.status = OutcomeError, status
}

// Status overrides the status text without touching the outcome.
func (r *UseCaseRun) Status(status string) {
	r.status = status
}

func (r *UseCaseRun) AddFields(fields ...Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records metrics and writes the summary log line.
func (r *UseCaseRun) End(err error) {
	lat := time.Since(r.start).Seconds()

	if err != nil && r.outcome != OutcomeError {
		r.Fail("ERROR")
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	if r.reqCounter != nil {
		r.reqCounter.Add(1,
			L("use_case", r.name),
			L("outcome", r.outcome),
		)
	}
	if r.durHistogram != nil {
		r.durHistogram.Observe(lat,
			L("use_case", r.name),
		)
	}

	fields := []Field{
		F("outcome", r.outcome),
		F("status", r.status),
		F("latency_seconds", lat),
	}
	fields = append(fields, r.fields...)
	fields = append(fields, TraceFields(r.ctx)...)
	if err != nil {
		fields = append(fields, F("error", err.Error()))
	}

	r.logger.Info("use_case_done", fields...)
}
