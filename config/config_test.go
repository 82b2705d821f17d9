package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DATABASE_URL", "JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS", "STATIC_DIR", "BCRYPT_COST", "AUDIT_INTERVAL", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "./portal.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.Equal(t, "./web/dist", cfg.StaticDir)
	assert.Equal(t, 6*time.Hour, cfg.AuditEvery)
	assert.False(t, cfg.Debug)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STATIC_DIR", "/srv/portal")
	t.Setenv("BCRYPT_COST", "11")
	t.Setenv("AUDIT_INTERVAL", "0s")
	t.Setenv("DEBUG", "true")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/portal", cfg.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "/srv/portal", cfg.StaticDir)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.Equal(t, time.Duration(0), cfg.AuditEvery)
	assert.True(t, cfg.Debug)
}

func TestFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "one day")
	t.Setenv("BCRYPT_COST", "high")
	t.Setenv("DEBUG", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 0, cfg.BcryptCost)
	assert.False(t, cfg.Debug)
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://portal:s3cret@db:5432/portal?sslmode=disable", "postgres://portal:xxxxx@db:5432/portal?sslmode=disable"},
		{"postgres://portal@db/portal", "postgres://portal@db/portal"},
		{"postgres://db/portal", "postgres://db/portal"},
		{"./portal.db", "./portal.db"},
		{":memory:", ":memory:"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got := RedactDSN(tt.dsn)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "s3cret")
		})
	}
}
