package observability

import (
	"context"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilPartsAreNoops(t *testing.T) {
	tel := New(nil, nil, nil, nil)

	assert.NotPanics(t, func() {
		_, span := tel.Tracer().Start(context.Background(), "UC.ListOrders")
		span.End()
		tel.Logger().With(observability.F("k", "v")).Info("msg")
		tel.Metrics().Counter(observability.MUsecaseRequests).Add(1)
		tel.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.1)
	})
}

func TestNew_ResolvesRegisteredInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	counters["ignored_total"] = nil

	tel := New(oteltrace.New(""), nil, counters, histograms)
	tel.Metrics().Counter(observability.MOrdersSettled).Add(2)
	tel.Metrics().Counter("unknown_total").Add(1)

	expected := `
# HELP orders_settled_total Count of orders whose balance due reached zero.
# TYPE orders_settled_total counter
orders_settled_total 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "orders_settled_total"))
	assert.Equal(t, observability.NopCounter(), tel.Metrics().Counter("ignored_total"))
}
