package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. Not for production.
const DevJWTSecret = "garage-dev-secret"

// Config holds everything the server reads from the environment.
type Config struct {
	Addr      string
	DBPath    string
	Timezone  string
	PublicURL string

	JWTSecret  string
	SessionTTL time.Duration

	LogLevel  string
	LogFormat string // "text" or "json"

	// Sign-in attempts allowed per client IP per minute.
	SignInRate int
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:      getEnv("ADDR", ":8080"),
		DBPath:    getEnv("DB_PATH", "garage.db"),
		Timezone:  getEnv("TIMEZONE", "Asia/Jakarta"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),

		JWTSecret:  getEnv("JWT_SECRET", DevJWTSecret),
		SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SignInRate: getInt("SIGNIN_RATE", 10),
	}
}

// Location resolves Timezone, falling back to a fixed WIB zone when tzdata is missing.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("WIB", 7*3600)
	}
	return loc
}

// InsecureSecret reports whether tokens are signed with the built-in dev secret.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// DSN is the sqlite connection string with WAL, busy timeout and FK enforcement.
func (c *Config) DSN() string {
	return c.DBPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
