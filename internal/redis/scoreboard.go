package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/omega-realm/scruffy/internal/combat"
)

// ScoreEntry is one user's position on a scoreboard
type ScoreEntry struct {
	UserID int     `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int64   `json:"rank"`
}

// Scoreboard tallies finished fights per user in sorted sets.
type Scoreboard struct {
	client *Client
}

func NewScoreboard(client *Client) *Scoreboard {
	return &Scoreboard{client: client}
}

func scoreboardKey(outcome combat.Outcome) string {
	return "scruffy:scoreboard:" + outcome.String()
}

// Record increments the user's tally for a terminal outcome. Ongoing results
// are ignored.
func (s *Scoreboard) Record(ctx context.Context, userID int, outcome combat.Outcome) error {
	if !outcome.Terminal() {
		return nil
	}
	if err := s.client.ZIncrBy(ctx, scoreboardKey(outcome), 1, strconv.Itoa(userID)).Err(); err != nil {
		return fmt.Errorf("failed to record %s: %w", outcome, err)
	}
	return nil
}

// Top returns the best users for an outcome, highest score first.
func (s *Scoreboard) Top(ctx context.Context, outcome combat.Outcome, limit int64) ([]ScoreEntry, error) {
	players, err := s.client.ZRevRangeWithScores(ctx, scoreboardKey(outcome), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top %s: %w", outcome, err)
	}
	return toEntries(players), nil
}

// Score returns a single user's tally, zero when the user has none.
func (s *Scoreboard) Score(ctx context.Context, userID int, outcome combat.Outcome) (float64, error) {
	score, err := s.client.ZScore(ctx, scoreboardKey(outcome), strconv.Itoa(userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s score: %w", outcome, err)
	}
	return score, nil
}

func toEntries(players []redis.Z) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(players))
	for i, p := range players {
		member, _ := p.Member.(string)
		id, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		entries = append(entries, ScoreEntry{UserID: id, Score: p.Score, Rank: int64(i) + 1})
	}
	return entries
}
