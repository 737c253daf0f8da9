package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-ledger/internal/application"
	appOrder "github.com/Zhima-Mochi/minishop-ledger/internal/application/order"
	appPayment "github.com/Zhima-Mochi/minishop-ledger/internal/application/payment"
	domainOrder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability/logctx"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// UseCases are the ledger operations served over HTTP.
type UseCases struct {
	ListOrders       application.UseCase[appOrder.ListOrdersInput, []*domainOrder.Order]
	GetOrder         application.UseCase[appOrder.GetOrderInput, *domainOrder.Order]
	CreateOrder      application.UseCase[appOrder.CreateOrderInput, *domainOrder.Order]
	ApplyPayment     application.UseCase[appPayment.ApplyPaymentInput, *appPayment.ApplyPaymentResult]
	PlaceOrderAndPay application.UseCase[appOrder.PlaceOrderAndPayInput, *domainOrder.Order]
}

type Handler struct {
	uc  UseCases
	log observability.Logger
	tel observability.Observability
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	tracerName           = "minishop-ledger.http"
	maxBodyBytes         = 1 << 20
)

const (
	codeInvalidInput          = "invalid_input"
	codeInvalidRequestBody    = "invalid_request_body"
	codeOrderNotFound         = "order_not_found"
	codeNoBalanceDue          = "no_balance_due"
	codePaymentExceedsBalance = "payment_exceeds_balance"
	codeDuplicateID           = "duplicate_id"
	codeAllocationExhausted   = "id_allocation_exhausted"
	codeRouteNotFound         = "route_not_found"
	codeInternal              = "internal_error"
)

func NewHandler(uc UseCases, logger observability.Logger, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if logger == nil {
		logger = tel.Logger()
	}
	return &Handler{
		uc:  uc,
		log: logger.With(observability.F("component", componentHTTPHandler)),
		tel: tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	// Trace → request logger → access log → HTTP metrics → handler
	h.handle(r, http.MethodGet, "/orders", h.handleListOrders)
	h.handle(r, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.handle(r, http.MethodPost, "/orders", h.handleCreateOrder)
	h.handle(r, http.MethodPost, "/orders/{id}/payments", h.handleApplyPayment)
	h.handle(r, http.MethodPost, "/payments", h.handlePaymentInput)
	h.handle(r, http.MethodPost, "/checkout", h.handlePlaceOrderAndPay)
	h.handle(r, http.MethodGet, "/health", h.handleHealth)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeRouteNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

func (h *Handler) handle(r *mux.Router, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			func(r *http.Request) string {
				return r.Header.Get(headerTenantID)
			},
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)

	r.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stable route template keeps metric labels low-cardinality.
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})).Methods(method)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.uc.ListOrders.Execute(r.Context(), appOrder.ListOrdersInput{})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder.Execute(r.Context(), appOrder.GetOrderInput{OrderID: mux.Vars(r)["id"]})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	o, err := h.uc.CreateOrder.Execute(r.Context(), appOrder.CreateOrderInput{
		Description: req.Description,
		Total:       req.Total,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req applyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}
	h.applyPayment(w, r, appPayment.ApplyPaymentInput{
		OrderID: mux.Vars(r)["id"],
		Amount:  req.Amount,
		Note:    req.Note,
	})
}

func (h *Handler) handlePaymentInput(w http.ResponseWriter, r *http.Request) {
	var req paymentInputRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}
	h.applyPayment(w, r, appPayment.ApplyPaymentInput{
		OrderID: req.OrderID,
		Amount:  req.Amount,
		Note:    req.Note,
	})
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request, in appPayment.ApplyPaymentInput) {
	res, err := h.uc.ApplyPayment.Execute(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(res.Payment))
}

func (h *Handler) handlePlaceOrderAndPay(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	o, err := h.uc.PlaceOrderAndPay.Execute(r.Context(), appOrder.PlaceOrderAndPayInput{
		Description:   req.Description,
		Total:         req.Total,
		PaymentAmount: req.PaymentAmount,
		Note:          req.Note,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using the injected instruments.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.tel.Metrics().Counter(observability.MHTTPRequests)
	duration := h.tel.Metrics().Histogram(observability.MHTTPRequestDuration)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		requests.Add(1, labels...)
		duration.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	var unpaid *appOrder.UnpaidOrderError
	if errors.As(err, &unpaid) {
		resp.OrderID = unpaid.OrderID
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainOrder.ErrInvalidInput):
		status, resp.Code = http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, domainOrder.ErrNotFound):
		status, resp.Code = http.StatusNotFound, codeOrderNotFound
	case errors.Is(err, domainOrder.ErrNoBalanceDue):
		status, resp.Code = http.StatusConflict, codeNoBalanceDue
	case errors.Is(err, domainOrder.ErrPaymentExceedsBalance):
		status, resp.Code = http.StatusUnprocessableEntity, codePaymentExceedsBalance
	case errors.Is(err, domainOrder.ErrConflict):
		status, resp.Code = http.StatusConflict, codeDuplicateID
	case errors.Is(err, appOrder.ErrAllocationExhausted):
		status, resp.Code = http.StatusServiceUnavailable, codeAllocationExhausted
	default:
		resp.Code = codeInternal
		resp.Error = "internal error"
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error", err),
		)
	}
	writeJSON(w, status, resp)
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
