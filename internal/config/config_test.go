package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "code-battle", cfg.Name)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Battle.LockWait)
	assert.Equal(t, 4, cfg.Judge.Parallel)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RedisLockNeedsRedis(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BATTLE_REDIS_LOCK", "true")
	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_ADDR")
}

func TestPostgres_DSN(t *testing.T) {
	p := Postgres{Host: "db", Port: 5433, User: "u", Password: "p", Database: "battles", SSLMode: "disable"}
	assert.True(t, p.Enabled())
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=battles sslmode=disable", p.DSN())
}
