package config

import (
	"testing"
	"time"
)

// TestDefaultArena verifies the simulation defaults
func TestDefaultArena(t *testing.T) {
	cfg := DefaultArena()

	if cfg.ArenaSize != 2000 {
		t.Errorf("ArenaSize = %v, want 2000", cfg.ArenaSize)
	}
	if cfg.IdleTimeout != 180*time.Second {
		t.Errorf("IdleTimeout = %v, want 180s", cfg.IdleTimeout)
	}
	if cfg.RespawnDelay != 3*time.Second {
		t.Errorf("RespawnDelay = %v, want 3s", cfg.RespawnDelay)
	}
	if cfg.TickInterval() != time.Second/30 {
		t.Errorf("TickInterval = %v", cfg.TickInterval())
	}
}

// TestArenaFromEnv verifies overrides and ignored garbage
func TestArenaFromEnv(t *testing.T) {
	t.Setenv("ARENA_TICK_RATE", "60")
	t.Setenv("ARENA_IDLE_TIMEOUT", "5m")
	t.Setenv("ARENA_SIZE", "not-a-number")

	cfg := ArenaFromEnv()

	if cfg.TickRate != 60 {
		t.Errorf("TickRate = %d, want 60", cfg.TickRate)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("IdleTimeout = %v, want 5m", cfg.IdleTimeout)
	}
	if cfg.ArenaSize != 2000 {
		t.Errorf("ArenaSize = %v, want default 2000", cfg.ArenaSize)
	}
}

// TestServerFromEnv verifies the CORS list parsing
func TestServerFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("PORT", "8080")

	cfg := ServerFromEnv()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

// TestLoggingFromEnv verifies level and format are normalized
func TestLoggingFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := LoggingFromEnv()

	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("LoggingFromEnv = %+v", cfg)
	}
}
