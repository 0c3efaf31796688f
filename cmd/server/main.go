package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"blade-arena/internal/api"
	"blade-arena/internal/config"
	"blade-arena/internal/lobby"
	"blade-arena/internal/observability"
	"blade-arena/internal/presence"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file from parent directory, then the current one
	envSource := "../.env"
	if err := godotenv.Load("../.env"); err != nil {
		envSource = ".env"
		if err := godotenv.Load(".env"); err != nil {
			envSource = ""
		}
	}

	appConfig := config.Load()

	logger, err := observability.NewLogger(appConfig.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if envSource != "" {
		logger.Info("✅ Loaded environment", zap.String("file", envSource))
	} else {
		logger.Info("💡 No .env file found, using environment variables only")
	}

	arenaCfg := appConfig.Arena
	serverCfg := appConfig.Server

	logger.Info("🎮 Blade arena starting",
		zap.Int("tickRate", arenaCfg.TickRate),
		zap.Float64("arenaSize", arenaCfg.ArenaSize),
		zap.Duration("idleTimeout", arenaCfg.IdleTimeout),
		zap.Int("maxRooms", arenaCfg.MaxRooms))

	observability.StartDebugServer(appConfig.Observability, logger)

	registry := presence.NewRegistry()
	registry.Subscribe(func(ev presence.Event) {
		logger.Debug("Presence changed", zap.Int("user", ev.UserID), zap.Bool("online", ev.Online))
	})

	hubCfg := api.DefaultHubConfig()
	hubCfg.Presence = registry
	hubCfg.Logger = logger
	hubCfg.Origins = serverCfg.CORSOrigins
	hubCfg.MaxConnections = serverCfg.MaxWSConnections
	hubCfg.MaxPerIP = serverCfg.MaxWSPerIP

	// The hub and the manager reference each other: rooms push into the hub,
	// the hub forwards joins and destinations to the rooms.
	hub := api.NewRoomHub(hubCfg)
	manager := lobby.NewManager(lobby.ManagerConfig{
		Arena:    arenaCfg,
		Sink:     hub,
		Presence: registry,
		Logger:   logger,
	})
	hub.SetRooms(manager)

	server := api.NewServer(serverCfg, arenaCfg.ArenaSize, manager, hub, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("✅ Server ready! Press Ctrl+C to stop.",
		zap.String("api", "http://localhost:"+strconv.Itoa(serverCfg.Port)+"/api/rooms"),
		zap.String("ws", "ws://localhost:"+strconv.Itoa(serverCfg.Port)+"/ws/rooms/{roomID}"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("🛑 Shutting down...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("⚠️ HTTP shutdown", zap.Error(err))
	}
	manager.Shutdown()

	logger.Info("👋 Goodbye!")
}
