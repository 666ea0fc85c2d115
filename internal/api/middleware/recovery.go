package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// panicTwiML is spoken to the caller when a webhook handler panics. Returning
// a 200 with a goodbye keeps the provider from playing its own error tone.
const panicTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say>Sorry, something went wrong. Goodbye!</Say>
  <Hangup></Hangup>
</Response>`

// Recoverer returns middleware that recovers from panics and logs the stack
// trace using slog. Webhook requests (identified by the CallSid form value)
// get a spoken apology and hangup; everything else gets a 500 JSON response.
// It should be mounted after StructuredLogger so the request ID is available.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				reqID := chimw.GetReqID(r.Context())
				stack := debug.Stack()

				slog.Error("panic recovered",
					"request_id", reqID,
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				if r.PostFormValue("CallSid") != "" {
					w.Header().Set("Content-Type", "text/xml; charset=utf-8")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(panicTwiML)) //nolint:errcheck
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(errorEnvelope{Error: "internal server error"}) //nolint:errcheck
			}
		}()

		next.ServeHTTP(w, r)
	})
}
