package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth"
	"github.com/gokatarajesh/code-battle/internal/config"
	"github.com/gokatarajesh/code-battle/internal/logging"
	"github.com/gokatarajesh/code-battle/internal/session"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
)

const pingTimeout = 2 * time.Second

// NewUpgrader returns a WebSocket upgrader that accepts the configured
// origins. Requests without an Origin header (non-browser clients) pass.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Dependencies are the handlers and backends the router exposes. Pool,
// Redis and Leaderboard may be nil.
type Dependencies struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	Auth         *auth.Service
	AuthHandlers *auth.HTTPHandlers
	Battles      *session.HTTPHandlers
	BattleWS     http.HandlerFunc
	Leaderboard  http.HandlerFunc
}

// NewHTTPServer wires every route of the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := pingDependencies(ctx, deps.Pool, deps.Redis); err != nil {
			reqLog := logging.FromContext(r.Context())
			reqLog.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeUpstreamError, "dependency unavailable")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"ready": true})
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	if deps.AuthHandlers != nil {
		mux.HandleFunc("POST /auth/guest", deps.AuthHandlers.CreateGuest)
	}

	if deps.Battles != nil {
		requireAuth := auth.RequireAuth(deps.Auth, logger)
		protect := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

		mux.Handle("POST /battle/create", protect(deps.Battles.Create))
		mux.Handle("GET /battle/all", protect(deps.Battles.List))
		mux.Handle("GET /battle/room/{code}", protect(deps.Battles.GetByRoomCode))
		mux.Handle("POST /battle/start/{id}", protect(deps.Battles.Start))
		mux.Handle("PATCH /battle/complete/{id}", protect(deps.Battles.Complete))
		mux.Handle("PATCH /battle/leave/{id}", protect(deps.Battles.Leave))
		mux.Handle("DELETE /battle/{id}", protect(deps.Battles.Delete))
	}

	if deps.Leaderboard != nil {
		mux.HandleFunc("GET /battle/leaderboard", deps.Leaderboard)
	}

	if deps.BattleWS != nil {
		mux.HandleFunc("GET /ws/battles", deps.BattleWS)
	} else {
		mux.HandleFunc("GET /ws/battles", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WebSocket handler not configured", http.StatusNotImplemented)
		})
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           logging.Middleware(logger)(corsHandler.Handler(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
