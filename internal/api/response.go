package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/partyline/partyline/internal/twiml"
)

// envelope is the standard JSON response wrapper for non-TwiML endpoints:
// { "data": ..., "error": ... }
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code and data payload.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: msg}); err != nil {
		slog.Error("failed to encode json error response", "error", err)
	}
}

// writeTwiML renders the response document as the telephony provider
// expects: XML with a 200 status.
func writeTwiML(w http.ResponseWriter, resp *twiml.Response) {
	body, err := resp.Render()
	if err != nil {
		slog.Error("failed to render twiml response", "error", err)
		writeError(w, http.StatusInternalServerError, "response rendering failed")
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("failed to write twiml response", "error", err)
	}
}
