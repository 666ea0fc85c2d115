package api

import (
	"context"
	"net/http"

	"github.com/partyline/partyline/internal/call"
	"github.com/partyline/partyline/internal/metrics"
	"github.com/partyline/partyline/internal/twiml"
)

// webhookFunc is the shape of every state-machine webhook operation.
type webhookFunc func(ctx context.Context, ev call.Event) (*twiml.Response, error)

// webhook adapts a state-machine operation into an HTTP handler: parse the
// form payload into an event, run the operation, render the TwiML. Operation
// errors become a 500; the provider's retry will hit a fresh handler.
func (s *Server) webhook(route string, fn webhookFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := parseEvent(r)
		if err != nil {
			metrics.WebhookEvents.WithLabelValues(route, "bad_request").Inc()
			writeError(w, http.StatusBadRequest, "malformed webhook payload")
			return
		}

		resp, err := fn(r.Context(), ev)
		if err != nil {
			metrics.WebhookEvents.WithLabelValues(route, "error").Inc()
			s.logger.Error("webhook failed",
				"route", route, "call_sid", ev.CallSID(), "error", err)
			writeError(w, http.StatusInternalServerError, "call handling failed")
			return
		}

		metrics.WebhookEvents.WithLabelValues(route, "ok").Inc()
		writeTwiML(w, resp)
	}
}

// handleRecordingCommand is the one webhook that carries extra routing
// state: the recording id rides in the query string set by the preceding
// Gather action.
func (s *Server) handleRecordingCommand(w http.ResponseWriter, r *http.Request) {
	route := call.RouteRecordingCommand

	ev, err := parseEvent(r)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(route, "bad_request").Inc()
		writeError(w, http.StatusBadRequest, "malformed webhook payload")
		return
	}
	recordingID := r.URL.Query().Get("recordingId")

	resp, err := s.machine.HandleRecordingCommand(r.Context(), ev, recordingID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(route, "error").Inc()
		s.logger.Error("webhook failed",
			"route", route, "call_sid", ev.CallSID(), "recording_id", recordingID, "error", err)
		writeError(w, http.StatusInternalServerError, "call handling failed")
		return
	}

	metrics.WebhookEvents.WithLabelValues(route, "ok").Inc()
	writeTwiML(w, resp)
}

// parseEvent flattens the POST form into the event map. Telephony webhooks
// send one value per key.
func parseEvent(r *http.Request) (call.Event, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	ev := make(call.Event, len(r.PostForm))
	for key := range r.PostForm {
		ev[key] = r.PostForm.Get(key)
	}
	return ev, nil
}
