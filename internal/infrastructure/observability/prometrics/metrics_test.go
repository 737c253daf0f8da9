package prometrics

import (
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "ledger", "")

	c := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	c.Add(1, observability.L("use_case", "order.create"), observability.L("outcome", "success"))
	c.Bind(observability.L("use_case", "order.create"), observability.L("outcome", "success")).Add(2)

	again := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	again.Add(1, observability.L("use_case", "payment.apply"), observability.L("outcome", "error"))

	expected := `
# HELP ledger_usecase_requests_total help
# TYPE ledger_usecase_requests_total counter
ledger_usecase_requests_total{outcome="error",use_case="payment.apply"} 1
ledger_usecase_requests_total{outcome="success",use_case="order.create"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_usecase_requests_total"))
}

func TestRegistry_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	h := r.Histogram("usecase_duration_seconds", "help", []float64{0.1, 1}, "use_case")
	h.Observe(0.05, observability.L("use_case", "order.create"))
	h.Bind(observability.L("use_case", "order.create")).Observe(0.5)

	count, err := testutil.GatherAndCount(reg, "usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStandard(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := Standard(New(reg, "", ""))

	assert.Len(t, counters, 4)
	assert.Len(t, histograms, 3)

	counters[observability.MOrdersSettled].Add(1)
	expected := `
# HELP orders_settled_total Count of orders whose balance due reached zero.
# TYPE orders_settled_total counter
orders_settled_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "orders_settled_total"))
}
