package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrJamesThe3rd/feeflow/internal/alert"
	"github.com/MrJamesThe3rd/feeflow/internal/config"
	"github.com/MrJamesThe3rd/feeflow/internal/database"
	feeflowHttp "github.com/MrJamesThe3rd/feeflow/internal/http"
	ledgerHandler "github.com/MrJamesThe3rd/feeflow/internal/http/ledger"
	reconcileHandler "github.com/MrJamesThe3rd/feeflow/internal/http/reconcile"
	routingHandler "github.com/MrJamesThe3rd/feeflow/internal/http/routing"
	txHandler "github.com/MrJamesThe3rd/feeflow/internal/http/transaction"
	"github.com/MrJamesThe3rd/feeflow/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/feeflow/internal/ledger/store"
	"github.com/MrJamesThe3rd/feeflow/internal/metrics"
	"github.com/MrJamesThe3rd/feeflow/internal/reconcile"
	"github.com/MrJamesThe3rd/feeflow/internal/refcode"
	"github.com/MrJamesThe3rd/feeflow/internal/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/routing/broadcast"
	routingStore "github.com/MrJamesThe3rd/feeflow/internal/routing/store"
	"github.com/MrJamesThe3rd/feeflow/internal/statement"
	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
	txStore "github.com/MrJamesThe3rd/feeflow/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpen:     cfg.DB.MaxOpenConns,
		MaxIdle:     cfg.DB.MaxIdleConns,
		MaxLifetime: cfg.DB.ConnMaxLifetime,
		MaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	var (
		transactions = txStore.New(db)
		entries      = ledgerStore.New(db)
		settings     = routingStore.New(db)
	)

	cache := routing.NewCache(settings,
		routing.WithTTL(cfg.Routing.TTL),
		routing.WithFetchTimeout(cfg.Reconcile.StoreTimeout),
		routing.WithFallback(cfg.Routing.FallbackPayee, cfg.Routing.FallbackDisplayName),
		routing.WithRecorder(recorder),
	)

	invalidator := routing.Local(cache)

	if cfg.Redis.Addr != "" {
		client, err := broadcast.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()

		b := broadcast.New(client, cfg.Redis.Channel, cache)
		invalidator = b

		go func() {
			if err := b.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("routing invalidation listener stopped", "error", err)
			}
		}()
	}

	var alerts alert.Publisher = alert.LogPublisher{}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka := alert.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close()

		alerts = kafka
	}

	codes, err := refcode.New(transactions,
		refcode.WithLength(cfg.Reconcile.CodeLength),
		refcode.WithAttempts(cfg.Reconcile.CodeAttempts),
	)
	if err != nil {
		return fmt.Errorf("creating reference code generator: %w", err)
	}

	ledgerService := ledger.NewService(entries, transactions)

	transactionService := transaction.NewService(transactions, codes, cache, ledgerService,
		transaction.WithAlerts(alerts),
		transaction.WithRecorder(recorder),
		transaction.WithStoreTimeout(cfg.Reconcile.StoreTimeout),
	)

	reconcileService := reconcile.NewService(statement.NewParser(), codes, transactionService, recorder)

	router := feeflowHttp.New(
		txHandler.NewHandler(transactionService),
		routingHandler.NewHandler(cache, settings, invalidator),
		ledgerHandler.NewHandler(ledgerService),
		reconcileHandler.NewHandler(reconcileService, cfg.Server.MaxUploadBytes),
		feeflowHttp.Options{
			CORSOrigins: cfg.App.CORSOrigins,
			Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			Health:      db.PingContext,
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errs := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}
