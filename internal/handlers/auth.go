package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/omega-realm/scruffy/internal/auth"
	"github.com/omega-realm/scruffy/internal/database"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/middleware"
	"github.com/omega-realm/scruffy/internal/models"
)

const (
	minCredentialLen = 5
	maxCredentialLen = 10
)

// UserStore is what registration and login need from the durable store.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

type AuthHandler struct {
	users     UserStore
	combat    Combat
	passwords *auth.Passwords
	gate      *middleware.Gate
	rules     models.RoleRules
	log       logging.Logger
}

func NewAuthHandler(users UserStore, combat Combat, passwords *auth.Passwords, gate *middleware.Gate, rules models.RoleRules, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		combat:    combat,
		passwords: passwords,
		gate:      gate,
		rules:     rules,
		log:       log,
	}
}

// RegisterRequest represents the registration request body. Stats are
// optional and default to the configured user rules.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Health   *int   `json:"health,omitempty"`
	Strength *int   `json:"strength,omitempty"`
	Hits     *int   `json:"hits,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body")
		return
	}

	user, err := h.validateRegisterRequest(&req)
	if err != nil {
		writeError(w, err.Error())
		return
	}

	user.Password, err = h.passwords.Hash(req.Password)
	if err != nil {
		h.log.Error(r.Context(), "failed to hash password", "error", err)
		writeError(w, "internal error")
		return
	}

	created, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateUsername) {
			writeError(w, fmt.Sprintf("username %s already taken", req.Username))
			return
		}
		h.log.Error(r.Context(), "failed to create user", "username", req.Username, "error", err)
		writeError(w, "internal error")
		return
	}

	h.log.Info(r.Context(), "user registered", "username", created.Username, "user_id", created.ID)
	writeSuccess(w, fmt.Sprintf("user %s created", created.Username))
}

// Login checks credentials, starts a session and makes sure the user has a
// monster before sending them to it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body")
		return
	}

	user, err := h.authenticate(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailure) {
			writeError(w, "wrong username or password")
			return
		}
		h.log.Error(r.Context(), "failed to fetch user", "username", req.Username, "error", err)
		writeError(w, "internal error")
		return
	}

	if _, _, err := h.combat.EnsureMonster(r.Context(), user.ID); err != nil {
		h.log.Error(r.Context(), "failed to provision monster", "user_id", user.ID, "error", err)
		writeError(w, "internal error")
		return
	}

	if err := h.gate.Remember(w, user); err != nil {
		h.log.Error(r.Context(), "failed to issue session", "user_id", user.ID, "error", err)
		writeError(w, "internal error")
		return
	}

	h.log.Info(r.Context(), "user logged in", "username", user.Username, "user_id", user.ID)
	http.Redirect(w, r, "/monster", http.StatusFound)
}

func (h *AuthHandler) authenticate(ctx context.Context, req LoginRequest) (models.User, error) {
	if req.Username == "" || req.Password == "" {
		return models.User{}, auth.ErrAuthenticationFailure
	}
	user, err := h.users.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.User{}, auth.ErrAuthenticationFailure
		}
		return models.User{}, err
	}
	if err := h.passwords.Verify(user.Password, req.Password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout drops the user's cached healths and ends the session. A failed
// flush never blocks the logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	if err := h.combat.Flush(r.Context(), userID); err != nil {
		h.log.Warn(r.Context(), "flush on logout", "user_id", userID, "error", err)
	}
	h.gate.Forget(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// validateRegisterRequest validates the registration request
func (h *AuthHandler) validateRegisterRequest(req *RegisterRequest) (models.User, error) {
	if err := checkCredential("username", req.Username); err != nil {
		return models.User{}, err
	}
	if err := checkCredential("password", req.Password); err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username: req.Username,
		Health:   valueOr(req.Health, h.rules.Health),
		Strength: valueOr(req.Strength, h.rules.Strength),
		Hits:     valueOr(req.Hits, h.rules.Hits),
	}
	if err := h.rules.Check(user.Health, user.Strength, user.Hits); err != nil {
		var rangeErr *models.RangeError
		if errors.As(err, &rangeErr) {
			return models.User{}, &ValidationError{Field: rangeErr.Field, Message: rangeErr.Error()}
		}
		return models.User{}, err
	}
	return user, nil
}

func checkCredential(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	if n := len(value); n < minCredentialLen || n > maxCredentialLen {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d characters", field, minCredentialLen, maxCredentialLen),
		}
	}
	return nil
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
