package tutor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sortit/internal/xp"
)

const leaderboardCacheKey = "sortit:leaderboard"

// LeaderboardEntry is one ranked row: a user's summed XP across all
// conversations and the level that XP maps to.
type LeaderboardEntry struct {
	Rank    int  `json:"rank"`
	UserID  uint `json:"userId"`
	TotalXP int  `json:"totalXP"`
	Level   int  `json:"level"`
}

// Leaderboard returns the top users by total XP. Results are cached in redis
// for the configured TTL; cache failures fall back to the database.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, leaderboardCacheKey).Bytes()
		if err == nil {
			var cached []LeaderboardEntry
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	rows, err := s.sessions.XPByUser(s.cfg.Tutor.LeaderboardLimit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:    i + 1,
			UserID:  r.UserID,
			TotalXP: r.TotalXP,
			Level:   xp.LevelForXP(r.TotalXP).Level,
		})
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(entries); err == nil {
			ttl := time.Duration(s.cfg.Tutor.LeaderboardTTLSec) * time.Second
			if err := s.rdb.Set(ctx, leaderboardCacheKey, raw, ttl).Err(); err != nil {
				log.Printf("[Tutor] Leaderboard cache write failed: %v", err)
			}
		}
	}
	return entries, nil
}
