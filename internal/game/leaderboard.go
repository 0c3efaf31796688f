package game

import "sort"

// LeaderboardEntry is one ranked player of a room.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID int    `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	Alive  bool   `json:"alive"`
	IsAI   bool   `json:"ai"`
}

// Leaderboard ranks live and dead players of a state by score, then kills.
// Ties keep live players first, then ascending user id. Ranks are 1-indexed.
// limit <= 0 returns every player.
func Leaderboard(state BroadcastState, limit int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(state.Players)+len(state.Dead))
	add := func(p PlayerDTO, alive bool) {
		entries = append(entries, LeaderboardEntry{
			UserID: p.UserID,
			Name:   p.Name,
			Score:  p.Score,
			Kills:  p.Kills,
			Deaths: p.Deaths,
			Alive:  alive,
			IsAI:   p.UserID < 0,
		})
	}
	for _, p := range state.Players {
		add(p, true)
	}
	for _, p := range state.Dead {
		add(p, false)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Alive != b.Alive {
			return a.Alive
		}
		return a.UserID < b.UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
