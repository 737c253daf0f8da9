package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appOrder "github.com/Zhima-Mochi/minishop-ledger/internal/application/order"
	appPayment "github.com/Zhima-Mochi/minishop-ledger/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-ledger/internal/clock"
	"github.com/Zhima-Mochi/minishop-ledger/internal/config"
	domainOrder "github.com/Zhima-Mochi/minishop-ledger/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-ledger/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-ledger/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-ledger/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-ledger/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config_invalid", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		LogFile: cfg.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	counters, histograms := prometrics.Standard(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	appLogger := zaplogger.New(baseLogger)
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), appLogger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In-memory event bus (acts as outbox/event publisher)
	bus := outbox.NewBus(appLogger,
		outbox.WithQueueSize(cfg.EventQueueSize),
		outbox.WithContextDecorator(workerpresentation.EventContextDecorator(appLogger)),
	)

	orderRepo := memory.NewOrderRepository()
	clk := clock.NewSystem()
	idGenerator := id.NewHexGenerator(id.DefaultTokenBytes)

	createOrder := appOrder.NewCreateOrderUseCase(orderRepo, appOrder.NewIDAllocator(idGenerator, cfg.IDMaxAttempts), clk, bus, tel)
	applyPayment := appPayment.NewApplyPaymentUseCase(orderRepo, appPayment.NewEngine(idGenerator, clk), bus, tel)
	handler := httppresentation.NewHandler(httppresentation.UseCases{
		ListOrders:       appOrder.NewListOrdersUseCase(orderRepo, tel),
		GetOrder:         appOrder.NewGetOrderUseCase(orderRepo, tel),
		CreateOrder:      createOrder,
		ApplyPayment:     applyPayment,
		PlaceOrderAndPay: appOrder.NewPlaceOrderAndPayUseCase(orderRepo, createOrder, applyPayment, tel),
	}, appLogger, tel)

	appOrder.NewSettlementWorker(bus, tel).Start()

	var relay *kafka.Relay
	if cfg.RelayEnabled() {
		relay = kafka.NewRelay(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), tel)
		relay.Subscribe(bus,
			domainOrder.OrderCreatedEvent{}.EventName(),
			domainOrder.PaymentAppliedEvent{}.EventName(),
		)
		systemLogger.Info("kafka_relay_enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	bus.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			systemLogger.Error("http_server_shutdown_error",
				zap.Error(err),
			)
		} else {
			systemLogger.Info("http_server_stopped")
		}

		if err := bus.Stop(shutdownCtx); err != nil {
			systemLogger.Warn("event_bus_stop_error",
				zap.Error(err),
			)
		}
		if relay != nil {
			if err := relay.Close(); err != nil {
				systemLogger.Warn("kafka_relay_close_error",
					zap.Error(err),
				)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		systemLogger.Error("http_server_error",
			zap.Error(err),
		)
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}
