// Package config loads process configuration from a .env file and the
// environment. Command-line flags in cmd/ override what is loaded here.
package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
	StaticDir   string
	BcryptCost  int
	AuditEvery  time.Duration
	Debug       bool
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment")
	} else {
		log.Println("✅ Loaded .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL: getEnv("DATABASE_URL", "./portal.db"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		StaticDir:   getEnv("STATIC_DIR", "./web/dist"),
		BcryptCost:  getEnvInt("BCRYPT_COST", 0),
		AuditEvery:  getEnvDuration("AUDIT_INTERVAL", 6*time.Hour),
		Debug:       getEnvBool("DEBUG", false),
	}
	if cfg.JWTSecret == "" {
		log.Println("❌ JWT_SECRET is not set")
	}
	return cfg
}

// Debugf logs a formatted message only when DEBUG is enabled.
func (c *Config) Debugf(format string, v ...any) {
	if c.Debug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// RedactDSN hides the password of a database URL. Plain file paths are
// returned unchanged.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
