package handlers

import (
	"encoding/json"
	"net/http"
)

// Response is the flat envelope used for messages and errors.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// Errors are reported in the envelope with HTTP 200; clients branch on the
// status field.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, msg string) {
	writeJSON(w, Response{Status: "success", Msg: msg})
}

func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, Response{Status: "error", Msg: msg})
}
