package handlers

import (
	"net/http"

	"github.com/omega-realm/scruffy/internal/middleware"
)

// Routes registers every endpoint on mux. Handlers behind the gate only run
// for requests with a valid session.
func Routes(mux *http.ServeMux, gate *middleware.Gate, a *AuthHandler, c *CombatHandler, l *LeaderboardHandler) {
	mux.HandleFunc("GET /{$}", Root)
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /leaderboard", l.GetLeaderboard)

	mux.HandleFunc("POST /register", a.Register)
	mux.HandleFunc("POST /login", a.Login)
	mux.HandleFunc("GET /logout", gate.RequireSession(a.Logout))

	mux.HandleFunc("GET /monster", gate.RequireSession(c.Monster))
	mux.HandleFunc("GET /status", gate.RequireSession(c.Status))
	mux.HandleFunc("GET /hit", gate.RequireSession(c.Hit))
	mux.HandleFunc("GET /flush", gate.RequireSession(c.Flush))
}
