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

	"github.com/omega-realm/scruffy/internal/auth"
	"github.com/omega-realm/scruffy/internal/cache"
	"github.com/omega-realm/scruffy/internal/combat"
	"github.com/omega-realm/scruffy/internal/config"
	"github.com/omega-realm/scruffy/internal/database"
	"github.com/omega-realm/scruffy/internal/handlers"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/middleware"
	"github.com/omega-realm/scruffy/internal/redis"
	"github.com/omega-realm/scruffy/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scruffy: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)

	shutdownTracing, err := telemetry.Setup(ctx, "scruffy", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn(ctx, "failed to flush traces", "error", err)
		}
	}()

	log.Info(ctx, "initializing database connection", "driver", cfg.Database.Driver)
	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info(ctx, "database connected successfully")

	var (
		users, monsters cache.Cache
		board           *redis.Scoreboard
	)
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		users = redis.NewHealthCache(client, "users")
		monsters = redis.NewHealthCache(client, "monsters")
		board = redis.NewScoreboard(client)
		log.Info(ctx, "redis connected successfully", "addr", cfg.Redis.Addr())
	default:
		users, monsters = cache.NewMemory(), cache.NewMemory()
	}

	mode, err := combat.ParseMode(cfg.Combat.Mode)
	if err != nil {
		return err
	}
	opts := combat.Options{
		Mode:            mode,
		Pacer:           combat.DelayPacer{Delay: cfg.Combat.AttackDelay},
		MonsterTemplate: cfg.Monster.Template(),
		Logger:          log,
	}
	// A nil *redis.Scoreboard must not end up in the interface.
	if board != nil {
		opts.Scoreboard = board
	}
	store := db.Store()
	resolver := combat.NewResolver(store, users, monsters, opts)

	passwordMode, err := auth.ParsePasswordMode(cfg.Session.PasswordMode)
	if err != nil {
		return err
	}
	gate := middleware.NewGate(auth.NewIssuer(cfg.Session.JWTSecret, cfg.Session.TTL))

	var scores handlers.ScoreReader
	if board != nil {
		scores = board
	}

	mux := http.NewServeMux()
	handlers.Routes(mux, gate,
		handlers.NewAuthHandler(store, resolver, auth.NewPasswords(passwordMode), gate, cfg.User.Rules(), log),
		handlers.NewCombatHandler(resolver, log),
		handlers.NewLeaderboardHandler(scores, log),
	)

	handler := middleware.Chain(mux,
		middleware.Recover(log),
		middleware.Trace,
		middleware.RequestLogger(log),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting server", "addr", cfg.HTTPAddr, "mode", string(mode), "cache", cfg.CacheBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
