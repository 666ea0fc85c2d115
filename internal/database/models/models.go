package models

import "time"

// CallSession tracks everything the service must remember about one physical
// phone call between webhook events. It is created on the first event for an
// unseen call SID and never deleted. The persona is assigned at creation and
// immutable afterwards.
type CallSession struct {
	ID       string
	CallSID  string
	Persona  string
	// SongCandidates holds the tracks offered to the caller between a song
	// search and a selection. nil means no search has produced a menu for
	// this session; an empty non-nil slice means a search ran and the menu
	// is (still) empty. The distinction matters to the selection handler.
	SongCandidates []Track
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Track is one song search candidate. Tracks exist only inside a session's
// SongCandidates list; they are never persisted on their own.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	DisplayName string `json:"display_name"`
	Popularity  int    `json:"popularity"`
}

// GlobalSettings is the singleton settings record, lazily seeded on first
// access. AllowedCallers may contain "*" to admit any caller.
type GlobalSettings struct {
	ID               string
	AllowedCallers   []string
	SurpriseNumbers  []string
	SortByPopularity bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recording is a voice message left by a caller. IsPublished transitions
// false to true exactly once; unpublished recordings are never played back
// to other callers and are eventually swept by retention.
type Recording struct {
	ID          string
	CallSID     string
	URL         string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QueueOutcome reports the result of enqueueing a track on the music service.
// Position and MinutesUntilPlay are optional: the service cannot always
// determine where in the queue the track landed.
type QueueOutcome struct {
	Success          bool
	Position         *int
	MinutesUntilPlay *int
}
