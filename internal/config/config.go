// Package config provides centralized configuration management.
// Every section has a Default constructor and an env-aware FromEnv variant;
// Load assembles the complete application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the per-room simulation settings.
type ArenaConfig struct {
	TickRate           int           // Target ticks per second
	ArenaSize          float64       // Side length of the square arena, centered on the origin
	IdleTimeout        time.Duration // Room stops after this long without join/command activity
	RespawnDelay       time.Duration // Time a dead player waits before re-queueing
	BonusSpawnInterval time.Duration // Cooldown between random bonus spawns
	LagBufferSeconds   float64       // Seconds of broadcast history kept per room
	MaxDeltaTime       float64       // Upper bound for one simulation step, in seconds
	InboxSize          int           // Buffered inbound commands per room
	MaxRooms           int           // Hard cap on concurrently registered rooms
}

// DefaultArena returns the default simulation settings.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		TickRate:           30,
		ArenaSize:          2000,
		IdleTimeout:        180 * time.Second,
		RespawnDelay:       3 * time.Second,
		BonusSpawnInterval: 600 * time.Millisecond,
		LagBufferSeconds:   2,
		MaxDeltaTime:       0.25,
		InboxSize:          256,
		MaxRooms:           100,
	}
}

// ArenaFromEnv returns arena configuration with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if v := getEnvInt("ARENA_TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvFloat("ARENA_SIZE", 0); v > 0 {
		cfg.ArenaSize = v
	}
	if v := getEnvDuration("ARENA_IDLE_TIMEOUT", 0); v > 0 {
		cfg.IdleTimeout = v
	}
	if v := getEnvDuration("ARENA_RESPAWN_DELAY", 0); v > 0 {
		cfg.RespawnDelay = v
	}
	if v := getEnvDuration("ARENA_BONUS_INTERVAL", 0); v > 0 {
		cfg.BonusSpawnInterval = v
	}
	if v := getEnvFloat("ARENA_LAG_BUFFER_SECONDS", 0); v > 0 {
		cfg.LagBufferSeconds = v
	}
	if v := getEnvInt("ARENA_INBOX_SIZE", 0); v > 0 {
		cfg.InboxSize = v
	}
	if v := getEnvInt("ARENA_MAX_ROOMS", 0); v > 0 {
		cfg.MaxRooms = v
	}

	return cfg
}

// TickInterval is the time budget of one tick.
func (c ArenaConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Port              int
	CORSOrigins       []string
	MaxWSConnections  int
	MaxWSPerIP        int
	RequestsPerSecond float64
	Burst             int
	PreviewSize       int // Side length in pixels of room preview images
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
		CORSOrigins: []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
		MaxWSConnections:  1000,
		MaxWSPerIP:        10,
		RequestsPerSecond: 20,
		Burst:             40,
		PreviewSize:       512,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if v := getEnvInt("MAX_WS_CONNECTIONS", 0); v > 0 {
		cfg.MaxWSConnections = v
	}
	if v := getEnvInt("MAX_WS_PER_IP", 0); v > 0 {
		cfg.MaxWSPerIP = v
	}
	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		cfg.Burst = v
	}
	if v := getEnvInt("PREVIEW_SIZE", 0); v > 0 {
		cfg.PreviewSize = v
	}

	return cfg
}

// =============================================================================
// LOGGING CONFIGURATION
// =============================================================================

// LoggingConfig selects the logger level and encoding.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// DefaultLogging returns the default logging configuration.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
	}
}

// LoggingFromEnv returns logging configuration with environment variable overrides.
func LoggingFromEnv() LoggingConfig {
	cfg := DefaultLogging()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = strings.ToLower(v)
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // Keep on localhost unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns debug server configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena         ArenaConfig
	Server        ServerConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Arena:         ArenaFromEnv(),
		Server:        ServerFromEnv(),
		Logging:       LoggingFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
