package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clickmart/internal/config"
	"clickmart/internal/db"
	"clickmart/internal/game"
	"clickmart/internal/store"
)

// The worker applies passive production to sessions no client is ticking.
// Each pass picks sessions untouched for at least one tick interval and
// advances them by the time since their last update, capped the same way a
// client-submitted tick would be.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadAPIFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required for the worker")
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("load rules failed", "err", err)
		os.Exit(1)
	}
	engine := game.NewEngine(rules.Catalog(), rules.Formulas)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	st, err := store.NewPostgres(ctx, pool)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("CLICKMART_WORKER_RUN_ONCE")), "true")
	if runOnce {
		n, err := tickStaleSessions(ctx, engine, st, cfg)
		if err != nil {
			logger.Error("tick pass failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "sessions", n)
		return
	}

	ticker := time.NewTicker(cfg.WorkerTickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.WorkerTickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			n, err := tickStaleSessions(ctx, engine, st, cfg)
			if err != nil {
				logger.Error("tick pass failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("tick pass complete", "sessions", n)
			}
		}
	}
}

func tickStaleSessions(ctx context.Context, engine *game.Engine, st store.Store, cfg config.APIConfig) (int, error) {
	now := time.Now()
	stale, err := st.ListStale(ctx, now.Add(-cfg.WorkerTickEvery), cfg.WorkerBatchSize)
	if err != nil {
		return 0, err
	}
	for _, sess := range stale {
		elapsed := now.Sub(sess.UpdatedAt).Milliseconds()
		if elapsed > game.MaxTickMs {
			elapsed = game.MaxTickMs
		}
		if !game.ValidTickElapsed(elapsed) {
			continue
		}
		_, err := st.Update(ctx, sess.ID, engine.Initialize(), func(cur game.GameState) (game.GameState, error) {
			return engine.Tick(cur, elapsed), nil
		})
		if err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
