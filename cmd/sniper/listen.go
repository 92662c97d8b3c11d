package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/api"
	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/config"
	"solana-pool-sniper/internal/discovery"
	"solana-pool-sniper/internal/health"
	"solana-pool-sniper/internal/journal"
	"solana-pool-sniper/internal/listener"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/storage"
	"solana-pool-sniper/internal/storage/memory"
	"solana-pool-sniper/internal/storage/migrations"
	pgstore "solana-pool-sniper/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func runListen(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadListen(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics("sniper", reg)
	status := health.NewStatus()

	store, closeStore, err := openDetectionStore(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := listener.NewBus()
	recorder := journal.NewRecorder(store, journal.WithLogger(logger), journal.WithMetrics(metrics))
	recorder.Attach(bus)
	logEvents(bus, logger)

	fatal := make(chan error, 1)
	dial := func(ctx context.Context, onDisconnect func(error)) (chain.AccountSubscriber, error) {
		wsCfg := chain.DefaultWSConfig()
		wsCfg.Commitment = cfg.Commitment
		wsCfg.OnDisconnect = onDisconnect

		client, err := chain.NewWSClient(ctx, cfg.WSURL, &wsCfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	mgr := listener.NewManager(listener.Config{
		Watch:         cfg.Watch(),
		MaxAttempts:   cfg.MaxAttempts,
		BaseDelay:     cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		StatsInterval: cfg.StatsInterval,
	}, dial, bus,
		listener.WithLogger(logger),
		listener.WithMetrics(metrics),
		listener.WithHealth(status),
		listener.WithFatalHandler(func(err error) {
			select {
			case fatal <- err:
			default:
			}
		}),
	)

	srv := startHTTPServer(cfg.MetricsAddr, api.NewRouter(reg, status, store, logger), logger)

	logger.Info("listener start",
		zap.String("ws_url", cfg.WSURL),
		zap.String("commitment", cfg.Commitment),
		zap.String("quote_mint", cfg.QuoteMint.String()),
		zap.Bool("cache_markets", cfg.CacheMarkets),
		zap.Bool("track_amm_v4", cfg.TrackAmmV4),
		zap.Bool("track_cpmm", cfg.TrackCpmm),
		zap.Bool("track_dlmm", cfg.TrackDlmm),
		zap.Bool("auto_sell", cfg.AutoSell),
		zap.String("metrics_addr", cfg.MetricsAddr))

	mgr.Start()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-fatal:
		logger.Error("listener gave up reconnecting", zap.Error(runErr))
	}

	mgr.Stop()
	recorder.Close()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}

	return runErr
}

// journalMaxConns covers the writer goroutine plus concurrent API reads.
const journalMaxConns = 4

// openDetectionStore returns the Postgres journal when dsn is set, else an in-memory one.
func openDetectionStore(ctx context.Context, dsn string, logger *zap.Logger) (storage.DetectionStore, func(), error) {
	if dsn == "" {
		logger.Info("detection journal in memory")
		return memory.NewDetectionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn, pgstore.WithMaxConns(journalMaxConns))
	if err != nil {
		return nil, nil, err
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("detection journal in postgres", zap.Strings("migrations_applied", applied))
	return pgstore.NewDetectionStore(pool), pool.Close, nil
}

// logEvents logs the topics that have no other consumer in this command.
func logEvents(bus *listener.Bus, logger *zap.Logger) {
	bus.Markets.Subscribe(func(ev listener.MarketEvent) {
		fields := []zap.Field{
			zap.String("account", ev.Account.String()),
			zap.String("base_mint", ev.Market.BaseMint.String()),
			zap.String("quote_mint", ev.Market.QuoteMint.String()),
			zap.Int64("slot", ev.Slot),
		}
		if signer, err := ev.Market.VaultSigner(discovery.OpenBookProgram); err == nil {
			fields = append(fields, zap.String("vault_signer", signer.String()))
		}
		logger.Info("market detected", fields...)
	})
	bus.Wallet.Subscribe(func(ev listener.WalletEvent) {
		logger.Info("wallet token account changed",
			zap.String("account", ev.Account.String()),
			zap.String("mint", ev.Token.Mint.String()),
			zap.Uint64("amount", ev.Token.Amount),
			zap.Int64("slot", ev.Slot))
	})
	bus.Reconnecting.Subscribe(func(ev listener.ReconnectingEvent) {
		logger.Warn("reconnecting",
			zap.Int("attempt", ev.Attempt),
			zap.Duration("delay", ev.Delay))
	})
	bus.Errors.Subscribe(func(ev listener.ErrorEvent) {
		if ev.Fatal {
			return
		}
		logger.Warn("listener error", zap.Error(ev.Err))
	})
}

// startHTTPServer serves handler on addr. An empty addr disables it.
func startHTTPServer(addr string, handler http.Handler, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server start", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	return srv
}
