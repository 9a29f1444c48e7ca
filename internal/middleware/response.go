package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// writeError answers with the service's flat error envelope. Errors are
// reported with HTTP 200.
func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Msg: msg})
}
