package handlers

import (
	"context"
	"net/http"

	"github.com/omega-realm/scruffy/internal/combat"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/redis"
)

const leaderboardSize = 10

// ScoreReader reads per-outcome tallies.
type ScoreReader interface {
	Top(ctx context.Context, outcome combat.Outcome, limit int64) ([]redis.ScoreEntry, error)
}

// LeaderboardResponse lists the top users per finished-fight outcome.
type LeaderboardResponse struct {
	Wins  []redis.ScoreEntry `json:"wins"`
	Fails []redis.ScoreEntry `json:"fails"`
	Draws []redis.ScoreEntry `json:"draws"`
}

type LeaderboardHandler struct {
	board ScoreReader
	log   logging.Logger
}

// NewLeaderboardHandler returns a handler serving board. A nil board
// disables the leaderboard.
func NewLeaderboardHandler(board ScoreReader, log logging.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, log: log}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		writeError(w, "leaderboard disabled")
		return
	}

	var resp LeaderboardResponse
	for _, slot := range []struct {
		outcome combat.Outcome
		dst     *[]redis.ScoreEntry
	}{
		{combat.Win, &resp.Wins},
		{combat.Fail, &resp.Fails},
		{combat.Finish, &resp.Draws},
	} {
		entries, err := h.board.Top(r.Context(), slot.outcome, leaderboardSize)
		if err != nil {
			h.log.Error(r.Context(), "failed to read leaderboard", "outcome", slot.outcome.String(), "error", err)
			writeError(w, "internal error")
			return
		}
		if entries == nil {
			entries = []redis.ScoreEntry{}
		}
		*slot.dst = entries
	}
	writeJSON(w, resp)
}
