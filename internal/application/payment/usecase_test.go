package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-ledger/internal/clock"
	domorder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-ledger/internal/domain/outbox"
	infraobs "github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-ledger/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

type fixture struct {
	repo *memory.OrderRepository
	pub  *recordingPublisher
	reg  *prometheus.Registry
	uc   *ApplyPaymentUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := infraobs.New(nil, nil, counters, histograms)

	repo := memory.NewOrderRepository()
	pub := &recordingPublisher{}
	engine := NewEngine(&seqIDs{}, clock.NewFixed(fixedNow))
	return &fixture{
		repo: repo,
		pub:  pub,
		reg:  reg,
		uc:   NewApplyPaymentUseCase(repo, engine, pub, tel),
	}
}

func (f *fixture) seed(t *testing.T, id, total string) {
	t.Helper()
	require.NoError(t, f.repo.Insert(context.Background(), newOrder(t, id, total)))
}

func TestApplyPaymentUseCase_Sequence(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "o1", "100.0")
	ctx := context.Background()

	res, err := f.uc.Execute(ctx, ApplyPaymentInput{OrderID: "o1", Amount: dec("40.0")})
	require.NoError(t, err)
	assert.True(t, res.Payment.Amount.Equal(dec("40")))
	assert.True(t, res.Order.BalanceDue.Equal(dec("60")))

	_, err = f.uc.Execute(ctx, ApplyPaymentInput{OrderID: "o1", Amount: dec("500.0")})
	require.ErrorIs(t, err, domorder.ErrPaymentExceedsBalance)
	assert.Contains(t, err.Error(), "payment of 500 exceeds balance due of 60;")

	stored, err := f.repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, stored.BalanceDue.Equal(dec("60")))
	assert.Len(t, stored.PaymentsApplied, 1)

	res, err = f.uc.Execute(ctx, ApplyPaymentInput{OrderID: "o1", Amount: dec("60.0"), Note: "final"})
	require.NoError(t, err)
	assert.True(t, res.Order.BalanceDue.IsZero())
	assert.Equal(t, domorder.StatusSettled, res.Order.Status())

	_, err = f.uc.Execute(ctx, ApplyPaymentInput{OrderID: "o1", Amount: dec("1.0")})
	require.ErrorIs(t, err, domorder.ErrNoBalanceDue)

	events := f.pub.Events()
	require.Len(t, events, 2)
	last, ok := events[1].(domorder.PaymentAppliedEvent)
	require.True(t, ok)
	assert.Equal(t, "o1", last.OrderID)
	assert.True(t, last.Settled)

	expected := `
# HELP usecase_requests_total Total number of use case invocations.
# TYPE usecase_requests_total counter
usecase_requests_total{outcome="error",use_case="payment.apply"} 2
usecase_requests_total{outcome="success",use_case="payment.apply"} 2
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), string(observability.MUsecaseRequests)))
}

func TestApplyPaymentUseCase_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), ApplyPaymentInput{OrderID: "missing", Amount: dec("1")})
	assert.ErrorIs(t, err, domorder.ErrNotFound)
	assert.Empty(t, f.pub.Events())
}

func TestApplyPaymentUseCase_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "o1", "10")

	_, err := f.uc.Execute(context.Background(), ApplyPaymentInput{OrderID: "o1", Amount: dec("-1")})
	assert.ErrorIs(t, err, domorder.ErrInvalidInput)
}

func TestApplyPaymentUseCase_PublishFailureKeepsPayment(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "o1", "10")
	f.pub.err = errors.New("queue closed")

	res, err := f.uc.Execute(context.Background(), ApplyPaymentInput{OrderID: "o1", Amount: dec("4")})
	require.NoError(t, err)
	assert.True(t, res.Order.BalanceDue.Equal(dec("6")))

	expected := `
# HELP external_requests_total Total number of calls to external peers.
# TYPE external_requests_total counter
external_requests_total{endpoint="order.payment_applied",outcome="error",peer="outbox"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), string(observability.MExternalRequests)))
}

func TestApplyPaymentUseCase_ConcurrentPaymentsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "o1", "100")

	const workers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Execute(context.Background(), ApplyPaymentInput{OrderID: "o1", Amount: dec("10")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if errors.Is(err, domorder.ErrNoBalanceDue) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, rejected)

	stored, err := f.repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.True(t, stored.BalanceDue.IsZero())
	assert.Len(t, stored.PaymentsApplied, 10)
}
