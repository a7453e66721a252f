package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth"
	"github.com/gokatarajesh/code-battle/internal/auth/jwt"
	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/config"
	"github.com/gokatarajesh/code-battle/internal/db/queries"
	"github.com/gokatarajesh/code-battle/internal/db/repository"
	"github.com/gokatarajesh/code-battle/internal/judge"
	"github.com/gokatarajesh/code-battle/internal/leaderboard"
	"github.com/gokatarajesh/code-battle/internal/logging"
	"github.com/gokatarajesh/code-battle/internal/metrics"
	"github.com/gokatarajesh/code-battle/internal/question"
	"github.com/gokatarajesh/code-battle/internal/room"
	"github.com/gokatarajesh/code-battle/internal/server"
	"github.com/gokatarajesh/code-battle/internal/session"
	ws "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps the logger, optional Postgres and Redis, the battle
// services and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	var pool *pgxpool.Pool
	if cfg.Postgres.Enabled() {
		var err error
		pool, err = pgxpool.New(ctx, fmt.Sprintf("%s pool_max_conns=%d", cfg.Postgres.DSN(), cfg.Postgres.MaxConns))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	} else {
		logger.Warn().Msg("PG_HOST not set; battles are kept in memory")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; question cache, room mirror and leaderboard disabled")
	}

	var q *queries.Queries
	if pool != nil {
		q = queries.New(pool)
	}

	// Question pool
	var questions question.Pool
	if cfg.Questions.FromDatabase {
		questions = repository.NewQuestionRepository(q)
	} else {
		bank, err := question.LoadFile(cfg.Questions.BankPath)
		if err != nil {
			return nil, err
		}
		questions = bank
		logger.Info().Int("questions", len(bank.All())).Str("path", cfg.Questions.BankPath).Msg("question bank loaded")
	}
	if redisClient != nil {
		questions = question.NewCachedPool(questions, redisClient, cfg.Questions.CacheTTL, logger)
	}

	// Battle store and lifecycle
	var store battle.Store = battle.NewMemoryStore()
	if q != nil {
		store = repository.NewBattleRepository(q)
	}
	var locker battle.Locker
	if cfg.Battle.RedisLock {
		locker = battle.NewRedisLocker(redisClient, battle.RedisLockerOptions{
			TTL:  cfg.Battle.LockTTL,
			Wait: cfg.Battle.LockWait,
		})
	}
	manager := battle.NewManager(store, questions, logger, battle.Options{
		Locker:          locker,
		RoomCodeRetries: int(cfg.Battle.RoomCodeRetries),
		KnownLanguage:   judge.SupportsLanguage,
	})

	// Real-time fan-out
	hub := ws.NewHub(logger)
	var mirror room.Mirror
	if redisClient != nil {
		mirror = room.NewRedisMirror(redisClient, cfg.Battle.RoomTTL)
	}
	broadcaster := room.NewBroadcaster(room.NewRegistry(mirror, logger), hub, logger)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg, hub.Count)

	// Judge
	judgeClient := judge.NewClient(judge.Config{
		BaseURL: cfg.Judge.URL,
		APIKey:  cfg.Judge.APIKey,
		Timeout: cfg.Judge.Timeout,
	}, nil, logger)
	runner := judge.NewRunner(judgeClient, cfg.Judge.Parallel, logger)

	// Leaderboard
	var leaderboardSvc *leaderboard.Service
	opts := session.Options{Metrics: collector}
	if redisClient != nil {
		leaderboardSvc = leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
			TopN:           cfg.Leaderboard.MaxLimit,
			RedisKeyPrefix: cfg.Leaderboard.Key,
		})
		opts.Leaderboard = leaderboardSvc
	}
	lbHTTPHandler := leaderboard.NewHTTPHandler(leaderboardSvc, cfg.Leaderboard.DefaultLimit, logger)

	coord := session.NewCoordinator(manager, broadcaster, questions, runner, logger, opts)

	// Auth
	authSvc := auth.NewService(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Name,
	}, logger)

	wsHandler := session.NewHandler(coord, hub, authSvc, server.NewUpgrader(cfg.CORS.AllowedOrigins), logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Pool:         pool,
		Redis:        redisClient,
		Gatherer:     reg,
		Auth:         authSvc,
		AuthHandlers: auth.NewHTTPHandlers(authSvc, logger),
		Battles:      session.NewHTTPHandlers(coord, logger),
		BattleWS:     wsHandler.HandleWebSocket,
		Leaderboard:  lbHTTPHandler.HandleGet,
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
