package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("VISIT_DEDUP_WINDOW", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "diario.db", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Minute, cfg.VisitDedupWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.VisitRollingWindow)
	assert.Equal(t, 24*time.Hour, cfg.MessagePurgeGrace)
	assert.Equal(t, cfg.SessionSecret, cfg.JWTSecret)
	assert.Equal(t, "/static/uploads", cfg.UploadURL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.InsecureSecrets())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://diario@localhost/diario")
	t.Setenv("VISIT_DEDUP_WINDOW", "90s")
	t.Setenv("MESSAGE_PURGE_GRACE", "not-a-duration")
	t.Setenv("JWT_SECRET", "jwt-secret")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "postgres://diario@localhost/diario", cfg.DatabaseURL)
	assert.Equal(t, 90*time.Second, cfg.VisitDedupWindow)
	assert.Equal(t, 24*time.Hour, cfg.MessagePurgeGrace)
	assert.Equal(t, "jwt-secret", cfg.JWTSecret)
}

func TestInsecureSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	assert.Equal(t, "session-secret", cfg.JWTSecret)
	assert.False(t, cfg.InsecureSecrets())

	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "jwt-secret")

	cfg = Load()
	assert.Equal(t, DevSessionSecret, cfg.SessionSecret)
	assert.True(t, cfg.InsecureSecrets(), "default session secret still signs cookies")
}
