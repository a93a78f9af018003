package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/partynight/internal/blob"
	"github.com/playperu/partynight/internal/config"
	"github.com/playperu/partynight/internal/database"
	"github.com/playperu/partynight/internal/game"
	"github.com/playperu/partynight/internal/handler/health"
	"github.com/playperu/partynight/internal/migrations"
	"github.com/playperu/partynight/internal/realtime"
	"github.com/playperu/partynight/internal/server"
	"github.com/playperu/partynight/internal/state"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Byte store ---
	b, closeBlob, err := openBlob(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlob()

	// --- State ---
	store := state.New(b, state.WithLogger(logger))
	svc := game.NewService(store, game.WithLogger(logger))
	hub := realtime.NewHub(svc,
		realtime.WithLogger(logger),
		realtime.WithQueueSize(cfg.ClientQueueSize),
	)
	svc.SetPublisher(hub)

	if err := svc.ReconcileAll(ctx); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	checks := map[string]health.Checker{
		"persistence": health.LastError(store.LastPersistError),
	}
	if p, ok := b.(blob.Pinger); ok {
		checks["store"] = health.Ping(p)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Game:        svc,
		Hub:         hub,
		Admins:      server.NewAdmins(cfg.AdminPasswordHash, clockwork.NewRealClock()),
		CORSOrigins: cfg.CORSOrigins,
		WS: realtime.WSOptions{
			OriginPatterns: originHosts(cfg.CORSOrigins),
			PingInterval:   cfg.WSPingInterval,
		},
		SPADir: cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is empty, admin routes are closed")
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "store_backend", cfg.StoreBackend)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	runErr := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Flush(flushCtx); err != nil {
		logger.Error("final state flush failed", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("flushing state: %w", err)
		}
	}
	return runErr
}

// openBlob connects the byte store selected by STORE_BACKEND.
func openBlob(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		return blob.NewSQL(db, "state"), func() { db.Close() }, nil

	case config.BackendRedis:
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("connected to redis", "key", cfg.RedisKey)
		return blob.NewRedis(rdb, cfg.RedisKey), func() { rdb.Close() }, nil

	case config.BackendPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		pg, err := blob.NewPostgres(ctx, pool, "state")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("preparing postgres snapshot table: %w", err)
		}
		logger.Info("connected to postgres")
		return pg, pool.Close, nil

	default:
		logger.Info("using state file", "path", cfg.StateFile)
		return blob.NewFile(cfg.StateFile), func() {}, nil
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// originHosts turns CORS origins like "http://localhost:5173" into the host
// patterns the WebSocket handshake checks against.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
