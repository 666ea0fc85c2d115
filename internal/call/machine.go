// Package call implements the call-session state machine: given one webhook
// event and the session state persisted for its call SID, it decides which
// sub-flow is active, validates input, talks to the collaborator services,
// mutates persisted state, and emits the next set of telephony instructions.
// Nothing survives in process memory between events.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/partyline/partyline/internal/database"
	"github.com/partyline/partyline/internal/database/models"
	"github.com/partyline/partyline/internal/twiml"
)

// Webhook routes the machine points Gather/Record actions at. The API layer
// mounts its handlers on the same paths.
const (
	RouteInitialize        = "/initialize"
	RouteCommand           = "/process-command"
	RouteSongQuery         = "/process-song-request"
	RouteSongSelection     = "/process-song-selection"
	RouteRecordingFinished = "/process-recording-finished"
	RouteRecordingCommand  = "/process-recording-command"
	RouteAccessCode        = "/process-access-code"
	RouteDialNumber        = "/process-phone-number"
)

// ErrNoSongCandidates is returned when the song-selection handler runs for a
// session that never cached a search result. The session reached an
// impossible state; this propagates instead of being masked as caller error.
var ErrNoSongCandidates = errors.New("no song candidates cached for session")

// Event is the raw string-keyed webhook payload for one telephony event.
type Event map[string]string

// CallSID returns the call correlation id shared by every event of one call.
func (e Event) CallSID() string { return e["CallSid"] }

// From returns the caller's phone number.
func (e Event) From() string { return e["From"] }

// Digits returns the DTMF digits collected by the previous Gather, and
// whether any were delivered at all.
func (e Event) Digits() (string, bool) {
	d, ok := e["Digits"]
	return d, ok
}

// SpeechResult returns the speech transcript, if one was delivered.
func (e Event) SpeechResult() (string, bool) {
	s, ok := e["SpeechResult"]
	return s, ok
}

// RecordingURL returns the URL of a finished recording, if one was delivered.
func (e Event) RecordingURL() (string, bool) {
	u, ok := e["RecordingUrl"]
	return u, ok
}

// MusicService searches tracks and enqueues them on the shared player queue.
type MusicService interface {
	Search(ctx context.Context, query string, byPopularity bool) ([]models.Track, error)
	// Enqueue may return an error when no active playback context exists.
	Enqueue(ctx context.Context, track models.Track) (models.QueueOutcome, error)
}

// DeviceService submits fire-and-forget device actuation jobs. The machine
// never waits for, or learns about, the job outcome.
type DeviceService interface {
	Submit() (jobID string)
}

// ClipSigner resolves a persona's prerecorded phrase to a playable URL.
type ClipSigner interface {
	SignClip(ctx context.Context, persona, phrase string) (string, error)
}

// Config carries the static configuration the machine needs.
type Config struct {
	// Personas are the rotating character names; each has its own clip set.
	Personas []string
	// AccessCode gates the dial-anywhere flow.
	AccessCode string
	// SurpriseNumbers is the static fallback dial-out list, used when the
	// stored settings carry none.
	SurpriseNumbers []string
	// SettingsID is the fixed id of the global settings singleton.
	SettingsID string
}

// Machine is the call state machine. It holds no per-call state; every
// handler resolves the session from the store using the event's call SID.
type Machine struct {
	sessions   database.CallSessionRepository
	recordings *recordingWorkflow
	rotator    *personaRotator
	settings   *settingsProvider
	music      MusicService
	devices    DeviceService
	clips      ClipSigner
	cfg        Config
	logger     *slog.Logger
}

// NewMachine creates the state machine with all collaborators injected.
func NewMachine(
	sessions database.CallSessionRepository,
	cursor database.PersonaCursorRepository,
	settings database.GlobalSettingsRepository,
	recordings database.RecordingRepository,
	music MusicService,
	devices DeviceService,
	clips ClipSigner,
	cfg Config,
	logger *slog.Logger,
) *Machine {
	return &Machine{
		sessions:   sessions,
		recordings: newRecordingWorkflow(recordings),
		rotator:    &personaRotator{cursor: cursor, personas: cfg.Personas},
		settings:   &settingsProvider{store: settings, id: cfg.SettingsID, surpriseNumbers: cfg.SurpriseNumbers},
		music:      music,
		devices:    devices,
		clips:      clips,
		cfg:        cfg,
		logger:     logger.With("subsystem", "call_machine"),
	}
}

// AnswerCall handles the first webhook of a call: it screens the caller
// against the allow-list, resolves or creates the session (assigning the
// next persona to new calls), and plays the persona's intro inside a
// one-digit menu Gather.
//
// The intro Gather is deliberately appended twice: callers get a second
// listen window before the call falls through.
func (m *Machine) AnswerCall(ctx context.Context, ev Event) (*twiml.Response, error) {
	allowed, err := m.verifyCaller(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !allowed {
		m.logger.Warn("caller rejected", "call_sid", ev.CallSID(), "from", ev.From())
		return twiml.NewResponse().Append(twiml.Hangup{}), nil
	}

	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	gather, err := m.menuGather(ctx, session)
	if err != nil {
		return nil, err
	}
	return twiml.NewResponse().Append(gather, gather), nil
}

// verifyCaller checks the caller number against the stored allow-list.
// A "*" entry admits any caller.
func (m *Machine) verifyCaller(ctx context.Context, ev Event) (bool, error) {
	settings, err := m.settings.GetOrInit(ctx)
	if err != nil {
		return false, err
	}

	from := ev.From()
	if from == "" {
		return false, nil
	}
	for _, n := range settings.AllowedCallers {
		if n == "*" || n == from {
			return true, nil
		}
	}
	return false, nil
}

// getOrCreateSession resolves the session for the event's call SID,
// creating one with a freshly rotated persona on first contact.
func (m *Machine) getOrCreateSession(ctx context.Context, ev Event) (*models.CallSession, error) {
	callSID := ev.CallSID()

	existing, err := m.sessions.GetByCallSID(ctx, callSID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	persona, err := m.rotator.Next(ctx)
	if err != nil {
		return nil, err
	}

	session := &models.CallSession{
		ID:      uuid.NewString(),
		CallSID: callSID,
		Persona: persona,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session for call %s: %w", callSID, err)
	}

	m.logger.Info("session created",
		"call_sid", callSID,
		"session_id", session.ID,
		"persona", persona,
	)
	return session, nil
}

// clip resolves one of the session persona's phrases to a Play verb.
func (m *Machine) clip(ctx context.Context, session *models.CallSession, phrase string) (twiml.Play, error) {
	url, err := m.clips.SignClip(ctx, session.Persona, phrase)
	if err != nil {
		return twiml.Play{}, fmt.Errorf("signing clip %s/%s: %w", session.Persona, phrase, err)
	}
	return twiml.Play{URL: url}, nil
}

// menuGather builds the universal menu Gather: the persona's intro clip
// inside a one-digit, ten-second DTMF collection posting to the command route.
func (m *Machine) menuGather(ctx context.Context, session *models.CallSession) (*twiml.Gather, error) {
	intro, err := m.clip(ctx, session, "intro")
	if err != nil {
		return nil, err
	}
	g := &twiml.Gather{
		Input:       "dtmf",
		Action:      RouteCommand,
		Method:      "POST",
		NumDigits:   1,
		FinishOnKey: "",
		Timeout:     10,
	}
	return g.Append(intro), nil
}

// fallback is the universal error-recovery edge: play the persona's apology
// clip, then replay the menu. Every unrecognized or missing input in every
// sub-flow lands here.
func (m *Machine) fallback(ctx context.Context, session *models.CallSession) (*twiml.Response, error) {
	sorry, err := m.clip(ctx, session, "sorry")
	if err != nil {
		return nil, err
	}
	gather, err := m.menuGather(ctx, session)
	if err != nil {
		return nil, err
	}
	return twiml.NewResponse().Append(sorry, gather), nil
}

// pickRandom returns a uniformly random element of a non-empty list.
func pickRandom(list []string) string {
	return list[rand.IntN(len(list))]
}
