// Package config handles loading runtime configuration for the escape-room realtime server.
// Configuration values (port, allowed origins, liveness timings, the optional profile
// database) are read from environment variables rather than being hardcoded, so the same
// binary runs in development and production with only the environment swapped.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// Handy in development; in production real environment variables are used instead.
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port           string   // TCP port the HTTP/websocket server listens on (e.g. "3001")
	Env            string   // "development", "staging", or "production"
	LogLevel       string   // zerolog level name: "debug", "info", "warn", ...
	AllowedOrigins []string // Origins allowed for CORS and websocket upgrades; "*" allows any
	DatabaseURL    string   // PostgreSQL DSN for profile storage; empty disables profile routes
	JWTSecret      string   // HMAC key used to verify identity tokens issued by the auth provider
	DefaultTheme   string   // Theme a room carries until its host picks one

	// Liveness and flow control for every websocket connection.
	PongWait       time.Duration // How long we wait for a pong before treating the client as gone
	PingPeriod     time.Duration // How often we ping; must be shorter than PongWait
	WriteWait      time.Duration // Deadline for a single outbound frame
	MaxMessageSize int64         // Largest inbound frame we accept, in bytes
	SendBuffer     int           // Outbound frames queued per connection before it is dropped
	EventRate      float64       // Sustained inbound events per second per connection
	EventBurst     int           // Inbound burst allowance per connection
}

// Load reads configuration from environment variables and returns a populated Config.
// A missing .env file is fine: production deployments set real environment variables.
func Load() *Config {
	_ = godotenv.Load()

	env := getString("ENV", "development")

	// Debug logs are useful locally, noisy everywhere else.
	defaultLevel := "info"
	if env == "development" {
		defaultLevel = "debug"
	}

	pongWait := getDuration("PONG_WAIT", 60*time.Second)
	// The gorilla-style rule of thumb: ping at 90% of the pong window so a healthy
	// client always answers before its read deadline expires.
	pingPeriod := getDuration("PING_PERIOD", (pongWait*9)/10)
	if pingPeriod >= pongWait {
		log.Warn().
			Dur("ping_period", pingPeriod).
			Dur("pong_wait", pongWait).
			Msg("PING_PERIOD must be shorter than PONG_WAIT, using 90% of PONG_WAIT")
		pingPeriod = (pongWait * 9) / 10
	}

	return &Config{
		Port:           getString("PORT", "3001"),
		Env:            env,
		LogLevel:       getString("LOG_LEVEL", defaultLevel),
		AllowedOrigins: splitList(getString("ALLOWED_ORIGINS", "*")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DefaultTheme:   getString("DEFAULT_THEME", "default"),
		PongWait:       pongWait,
		PingPeriod:     pingPeriod,
		WriteWait:      getDuration("WRITE_WAIT", 10*time.Second),
		MaxMessageSize: int64(getInt("MAX_MESSAGE_SIZE", 4096)),
		SendBuffer:     getInt("SEND_BUFFER", 64),
		EventRate:      getFloat("EVENT_RATE", 10),
		EventBurst:     getInt("EVENT_BURST", 20),
	}
}

// ProfilesEnabled reports whether the profile store can be mounted.
// It needs both a database and a key to verify who is asking.
func (c *Config) ProfilesEnabled() bool {
	return c.DatabaseURL != "" && c.JWTSecret != ""
}

// AllowsAnyOrigin is true when ALLOWED_ORIGINS is "*" (the permissive development default).
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid integer, using default")
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid number, using default")
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return fallback
	}
	return v
}

// splitList turns "a, b,,c" into ["a" "b" "c"].
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
