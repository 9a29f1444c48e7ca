package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/omega-realm/scruffy/internal/combat"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/middleware"
	"github.com/omega-realm/scruffy/internal/models"
)

const noMonsterMsg = "no monster yet, visit /monster"

// Combat is the resolver surface served over HTTP.
type Combat interface {
	EnsureMonster(ctx context.Context, userID int) (models.Monster, bool, error)
	Status(ctx context.Context, userID int) (combat.StatusReport, error)
	ResolveAttack(ctx context.Context, userID int) (combat.Result, error)
	Flush(ctx context.Context, userID int) error
}

// AttackResponse is the payload of an attack that did not end the fight.
type AttackResponse struct {
	UserHealth    int `json:"user_health"`
	MonsterHealth int `json:"monster_health"`
}

type CombatHandler struct {
	combat Combat
	log    logging.Logger
}

func NewCombatHandler(c Combat, log logging.Logger) *CombatHandler {
	return &CombatHandler{combat: c, log: log}
}

// Monster gives the user a monster if they have none yet.
func (h *CombatHandler) Monster(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	monster, created, err := h.combat.EnsureMonster(r.Context(), userID)
	if err != nil {
		if errors.Is(err, combat.ErrNoActiveCombatant) {
			writeError(w, "not authorized")
			return
		}
		h.log.Error(r.Context(), "failed to provision monster", "user_id", userID, "error", err)
		writeError(w, "internal error")
		return
	}

	if created {
		writeSuccess(w, fmt.Sprintf("monster %s created", monster.Name))
		return
	}
	writeSuccess(w, fmt.Sprintf("monster %s is waiting for you", monster.Name))
}

// Status returns the stored stats of the user and its monster.
func (h *CombatHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	report, err := h.combat.Status(r.Context(), userID)
	if err != nil {
		h.writeCombatError(w, r, userID, err)
		return
	}
	writeJSON(w, report)
}

// Hit resolves one attack.
func (h *CombatHandler) Hit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	res, err := h.combat.ResolveAttack(r.Context(), userID)
	if err != nil {
		h.writeCombatError(w, r, userID, err)
		return
	}

	if res.Outcome.Terminal() {
		writeJSON(w, Response{Status: res.Outcome.String(), Msg: res.Outcome.Message()})
		return
	}
	writeJSON(w, AttackResponse{UserHealth: res.UserHealth, MonsterHealth: res.MonsterHealth})
}

// Flush drops the user's cached healths.
func (h *CombatHandler) Flush(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := h.combat.Flush(r.Context(), userID); err != nil {
		if errors.Is(err, combat.ErrCacheKeyMissing) {
			h.log.Debug(r.Context(), "flush found missing entries", "user_id", userID, "error", err)
			writeError(w, "nothing to flush")
			return
		}
		h.log.Error(r.Context(), "failed to flush cache", "user_id", userID, "error", err)
		writeError(w, "internal error")
		return
	}
	writeSuccess(w, "cache flushed")
}

func (h *CombatHandler) writeCombatError(w http.ResponseWriter, r *http.Request, userID int, err error) {
	switch {
	case errors.Is(err, combat.ErrNoActiveCombatant):
		writeError(w, noMonsterMsg)
	case errors.Is(err, combat.ErrPersistenceFailure):
		writeError(w, "failed to save progress")
	default:
		h.log.Error(r.Context(), "combat request failed", "user_id", userID, "error", err)
		writeError(w, "internal error")
	}
}
