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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deviationScope/internal/chain"
	"deviationScope/internal/config"
	"deviationScope/internal/ledger"
	"deviationScope/internal/metrics"
	"deviationScope/internal/rates"
	"deviationScope/internal/storage"
	"deviationScope/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	tracker, err := cfg.Tracker()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var (
		store   ledger.Store
		pgStore *postgres.Store
	)
	if cfg.PGDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pgStore
	} else {
		logger.Warn("no pg-dsn configured, ledger is kept in memory")
		if cfg.StateFile != "" {
			logger.Warn("state-file without pg-dsn, an in-memory ledger always replays from the start",
				zap.String("state_file", cfg.StateFile),
			)
		}
		store = storage.NewMemoryStore()
	}

	var cursor ledger.CursorStore
	switch {
	case cfg.StateFile != "":
		cursor = &ledger.FileCursorStore{Path: cfg.StateFile}
	case pgStore != nil:
		cursor = &ledger.DBCursorStore{Store: pgStore, Name: cfg.CursorName}
	}

	if cfg.RecordsOut != "" {
		out, err := storage.OpenJSONL(cfg.RecordsOut, true)
		if err != nil {
			return err
		}
		defer out.Close()
		store = ledger.NewExportingStore(store, out)
	}

	registry := prometheus.NewRegistry()
	ledgerMetrics, err := metrics.NewLedger(registry)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
	}

	processor, err := ledger.NewProcessor(ledger.Config{
		Tracker:     tracker,
		RateAtBlock: cfg.RateAtBlock,
	}, store, rates.NewChainOracle(chainClient), logger, ledgerMetrics)
	if err != nil {
		return err
	}

	replayer := ledger.NewReplayer(ledger.ReplayConfig{
		SaveEvery:    cfg.SaveEvery,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Cursor:       cursor,
		IgnoreSaved:  cfg.ResetCursor,
	}, processor, logger)

	logger.Info("replay start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("in", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
		zap.Bool("reset_cursor", cfg.ResetCursor),
		zap.String("pool_id", tracker.PoolKey()),
		zap.String("token_a", tracker.TokenA.Hex()),
		zap.String("token_b", tracker.TokenB.Hex()),
		zap.String("amp", tracker.Amp.String()),
		zap.Bool("rate_at_block", cfg.RateAtBlock),
	)

	if _, err := replayer.RunFile(ctx, cfg.Input); err != nil {
		return err
	}

	pool, ok, err := store.LoadPool(ctx, tracker.PoolKey())
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("tracked pool was never registered", zap.String("pool_id", tracker.PoolKey()))
		return nil
	}
	logger.Info("pool state",
		zap.String("pool_id", pool.ID),
		zap.String("balance_a", pool.BalanceA.String()),
		zap.String("balance_b", pool.BalanceB.String()),
		zap.String("deviation_a", pool.DeviationA.String()),
		zap.String("deviation_b", pool.DeviationB.String()),
		zap.Uint64("last_updated_block", pool.LastUpdatedBlock),
	)
	return nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", zap.Error(err))
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
