package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "TIMEZONE", "DEFAULT_ACTIVITY_MINUTES", "IDEMPOTENCY_TTL", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 60*time.Minute, cfg.DefaultActivityDuration())
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("DEFAULT_ACTIVITY_MINUTES", "90")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IDEMPOTENCY_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 90, cfg.DefaultActivityMinutes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE", "memory")
	t.Setenv("DEFAULT_ACTIVITY_MINUTES", "abc")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_ACTIVITY_MINUTES", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DB{Host: "h", Port: "1", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", db.DSN())
}
