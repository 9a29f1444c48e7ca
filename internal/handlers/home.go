package handlers

import (
	"net/http"
	"time"
)

const greeting = "Hello, stranger! Register at POST /register, log in at POST /login, then GET /hit your monster."

func Root(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, greeting)
}

// Health is the liveness probe.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
