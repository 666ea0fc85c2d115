package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/partyline/partyline/internal/api/middleware"
	"github.com/partyline/partyline/internal/call"
	"github.com/partyline/partyline/internal/config"
	"github.com/partyline/partyline/internal/metrics"
	"github.com/partyline/partyline/internal/twiml"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router  *chi.Mux
	machine *call.Machine
	devices call.DeviceService
	metrics http.Handler
	limiter *middleware.IPRateLimiter
	cfg     *config.Config
	logger  *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(
	machine *call.Machine,
	devices call.DeviceService,
	metricsHandler http.Handler,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		machine: machine,
		devices: devices,
		metrics: metricsHandler,
		limiter: middleware.NewIPRateLimiter(middleware.WebhookRateLimitConfig()),
		cfg:     cfg,
		logger:  logger.With("subsystem", "api"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the background goroutines the server owns.
func (s *Server) Close() {
	s.limiter.Stop()
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	// Unauthenticated plumbing routes.
	r.Get("/health", s.handleHealth)
	r.Get("/spotify", s.handleSpotifyLanding)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	// Telephony webhooks. Every request must carry a valid provider
	// signature unless auth is disabled for local development.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter))
		r.Use(middleware.TwilioSignature(s.cfg.TwilioAuthToken, s.cfg.DisableAuth))

		r.Post(call.RouteInitialize, s.webhook(call.RouteInitialize, s.machine.AnswerCall))
		r.Post(call.RouteCommand, s.webhook(call.RouteCommand, s.machine.HandleMenuSelection))
		r.Post(call.RouteSongQuery, s.webhook(call.RouteSongQuery, s.machine.HandleSongQuery))
		r.Post(call.RouteSongSelection, s.webhook(call.RouteSongSelection, s.machine.HandleSongSelection))
		r.Post(call.RouteRecordingFinished, s.webhook(call.RouteRecordingFinished, s.machine.HandleRecordingFinished))
		r.Post(call.RouteRecordingCommand, s.handleRecordingCommand)
		r.Post(call.RouteAccessCode, s.webhook(call.RouteAccessCode, s.machine.HandleAccessCode))
		r.Post(call.RouteDialNumber, s.webhook(call.RouteDialNumber, s.machine.HandleDialNumber))
		r.Post("/change-color", s.handleChangeColor)
	})

	s.logger.Info("api routes mounted")
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSpotifyLanding is the OAuth redirect target. Authorization happens
// out of band (the refresh token is configured), so the landing only
// acknowledges the redirect.
func (s *Server) handleSpotifyLanding(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		s.logger.Info("spotify authorization code received", "state", r.URL.Query().Get("state"))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChangeColor triggers a light color change outside a call and
// answers with a spoken goodbye.
func (s *Server) handleChangeColor(w http.ResponseWriter, r *http.Request) {
	jobID := s.devices.Submit()
	s.logger.Info("color change requested", "job_id", jobID)
	metrics.WebhookEvents.WithLabelValues("/change-color", "ok").Inc()

	resp := twiml.NewResponse().Append(twiml.Say{Text: "I've changed the light color. Goodbye!"})
	writeTwiML(w, resp)
}
