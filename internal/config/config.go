package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"code-battle"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Judge       Judge
	Battle      Battle
	Questions   Questions
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database. Without PG_HOST
// battles live in process memory.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// Enabled reports whether a database was configured.
func (p Postgres) Enabled() bool { return p.Host != "" }

// DSN builds a key/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis backs the question cache, room mirror, distributed lock and
// leaderboard. All of them are skipped when REDIS_ADDR is empty.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"12h"`
}

// Judge points at the code-execution service.
type Judge struct {
	URL      string        `env:"JUDGE_URL" envDefault:"http://localhost:2358"`
	APIKey   string        `env:"JUDGE_API_KEY" envDefault:""`
	Timeout  time.Duration `env:"JUDGE_TIMEOUT" envDefault:"10s"`
	Parallel int           `env:"JUDGE_PARALLEL" envDefault:"4"`
}

// Battle groups coordination settings.
type Battle struct {
	LockWait        time.Duration `env:"BATTLE_LOCK_WAIT" envDefault:"5s"`
	LockTTL         time.Duration `env:"BATTLE_LOCK_TTL" envDefault:"30s"`
	RedisLock       bool          `env:"BATTLE_REDIS_LOCK" envDefault:"false"`
	RoomCodeRetries uint64        `env:"BATTLE_ROOM_CODE_RETRIES" envDefault:"20"`
	RoomTTL         time.Duration `env:"BATTLE_ROOM_TTL" envDefault:"2h"`
}

// Questions selects the question pool.
type Questions struct {
	BankPath string        `env:"QUESTION_BANK_PATH" envDefault:"configs/questions.yaml"`
	CacheTTL time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"5m"`
	// FromDatabase serves questions from Postgres instead of the bank file.
	FromDatabase bool `env:"QUESTION_FROM_DATABASE" envDefault:"false"`
}

// Leaderboard governs the Redis-backed standings.
type Leaderboard struct {
	Key          string `env:"LEADERBOARD_KEY" envDefault:"battle:leaderboard"`
	DefaultLimit int    `env:"LEADERBOARD_DEFAULT_LIMIT" envDefault:"20"`
	MaxLimit     int    `env:"LEADERBOARD_MAX_LIMIT" envDefault:"100"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Questions.FromDatabase && !cfg.Postgres.Enabled() {
		return nil, fmt.Errorf("QUESTION_FROM_DATABASE requires PG_HOST")
	}
	if cfg.Battle.RedisLock && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("BATTLE_REDIS_LOCK requires REDIS_ADDR")
	}
	return cfg, nil
}
