// Command simulate runs a robots-only room headless and prints its
// leaderboard. It is the quickest way to watch balance changes play out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"blade-arena/internal/config"
	"blade-arena/internal/game"
	"blade-arena/internal/lobby"
	"blade-arena/internal/observability"
	"blade-arena/internal/render"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	bots := flag.Int("bots", 8, "robot count (0-12)")
	rewards := flag.Int("rewards", 0, "bonus cap, 0 derives it from population")
	duration := flag.Duration("duration", 2*time.Minute, "simulated time")
	seed := flag.Int64("seed", 1, "room seed")
	preview := flag.String("preview", "", "write a PNG of the final state to this path")
	top := flag.Int("top", 0, "leaderboard rows, 0 prints all")
	flag.Parse()

	_ = godotenv.Load(".env")
	appConfig := config.Load()

	logger, err := observability.NewLogger(appConfig.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	room, err := lobby.New("simulation", lobby.CreateOptions{
		RobotCount:  *bots,
		RewardCount: *rewards,
		CreatedAt:   time.Now(),
	}, lobby.Config{
		Arena:  appConfig.Arena,
		Logger: logger,
		Seed:   *seed,
	})
	if err != nil {
		logger.Fatal("❌ Invalid room options", zap.Error(err))
	}

	dt := appConfig.Arena.TickInterval().Seconds()
	steps := int(duration.Seconds() / dt)

	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := room.Step(dt); err != nil {
			logger.Fatal("❌ Step failed", zap.Int("step", i), zap.Error(err))
		}
	}
	state := room.LatestState()

	logger.Info("🏁 Simulation finished",
		zap.Int("ticks", steps),
		zap.Duration("simulated", *duration),
		zap.Duration("wall", time.Since(start)),
		zap.Int("live", len(state.Players)),
		zap.Int("dead", len(state.Dead)),
		zap.Int("bonuses", len(state.Bonuses)))

	printLeaderboard(game.Leaderboard(state, *top))

	if *preview != "" {
		if err := writePreview(*preview, appConfig, state); err != nil {
			logger.Fatal("❌ Preview failed", zap.Error(err))
		}
		logger.Info("🖼️ Preview written", zap.String("path", *preview))
	}
}

func printLeaderboard(entries []game.LeaderboardEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tSCORE\tKILLS\tDEATHS\tALIVE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%v\n", e.Rank, e.Name, e.Score, e.Kills, e.Deaths, e.Alive)
	}
	w.Flush()
}

func writePreview(path string, cfg config.AppConfig, state game.BroadcastState) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.NewPreview(cfg.Server.PreviewSize, cfg.Arena.ArenaSize).EncodePNG(f, state); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
