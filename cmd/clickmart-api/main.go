package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clickmart/internal/api"
	"clickmart/internal/config"
	"clickmart/internal/db"
	"clickmart/internal/game"
	"clickmart/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadAPIFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("load rules failed", "err", err)
		os.Exit(1)
	}
	engine := game.NewEngine(rules.Catalog(), rules.Formulas)

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		pg, err := store.NewPostgres(ctx, pool)
		if err != nil {
			logger.Error("store init failed", "err", err)
			os.Exit(1)
		}
		st = pg
	} else {
		logger.Warn("DATABASE_URL not set, sessions are in-memory and lost on restart")
		st = store.NewMemory()
	}
	defer st.Close()

	hub := api.NewHub(logger)
	server := api.New(cfg, logger, engine, st, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("clickmart api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
