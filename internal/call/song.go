package call

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/partyline/partyline/internal/database/models"
	"github.com/partyline/partyline/internal/twiml"
)

// maxSongCandidates bounds the voice menu: one DTMF digit selects a track.
const maxSongCandidates = 10

// promptForSong appends the song-request prompt: the persona asks for a song,
// then a speech Gather (beep, 3s speech timeout, profanity filter off so
// track titles come through intact) posts the transcript to the query route.
func (m *Machine) promptForSong(ctx context.Context, resp *twiml.Response, session *models.CallSession) error {
	songInput, err := m.clip(ctx, session, "song-input")
	if err != nil {
		return err
	}
	beepURL, err := m.clips.SignClip(ctx, "general", "beep")
	if err != nil {
		return fmt.Errorf("signing beep clip: %w", err)
	}

	g := &twiml.Gather{
		Input:           "speech",
		Action:          RouteSongQuery,
		Method:          "POST",
		NumDigits:       1,
		FinishOnKey:     "#",
		Timeout:         5,
		SpeechTimeout:   "3",
		SpeechModel:     "experimental_conversations",
		ProfanityFilter: "false",
	}
	g.Append(twiml.Play{URL: beepURL})

	resp.Append(songInput, g)
	return nil
}

// HandleSongQuery turns the caller's speech transcript into a numbered voice
// menu of up to ten candidate tracks, persisting the list on the session so
// the selection handler can resolve the digit on the next event.
func (m *Machine) HandleSongQuery(ctx context.Context, ev Event) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	transcript, ok := ev.SpeechResult()
	if !ok {
		resp := twiml.NewResponse()
		sorry, err := m.clip(ctx, session, "sorry")
		if err != nil {
			return nil, err
		}
		resp.Append(sorry)
		if err := m.promptForSong(ctx, resp, session); err != nil {
			return nil, err
		}
		return resp, nil
	}

	settings, err := m.settings.GetOrInit(ctx)
	if err != nil {
		return nil, err
	}

	results, err := m.music.Search(ctx, transcript, settings.SortByPopularity)
	if err != nil {
		// Collaborator failure stays invisible to the caller: apologize and
		// let them try again.
		m.logger.Warn("track search failed",
			"call_sid", session.CallSID, "query", transcript, "error", err)
		resp := twiml.NewResponse()
		sorry, cerr := m.clip(ctx, session, "sorry")
		if cerr != nil {
			return nil, cerr
		}
		resp.Append(sorry)
		if err := m.promptForSong(ctx, resp, session); err != nil {
			return nil, err
		}
		return resp, nil
	}

	if len(results) == 0 {
		resp := twiml.NewResponse()
		tryAgain, err := m.clip(ctx, session, "different-song")
		if err != nil {
			return nil, err
		}
		resp.Append(tryAgain)
		if err := m.promptForSong(ctx, resp, session); err != nil {
			return nil, err
		}
		return resp, nil
	}

	if len(results) > maxSongCandidates {
		results = results[:maxSongCandidates]
	}

	var menu strings.Builder
	for i, track := range results {
		fmt.Fprintf(&menu, "%d: %s.\n", i+1, track.DisplayName)
	}
	menu.WriteString("Press star to go back.")

	selectSong, err := m.clip(ctx, session, "select-song")
	if err != nil {
		return nil, err
	}
	g := &twiml.Gather{
		Input:       "dtmf",
		Action:      RouteSongSelection,
		Method:      "POST",
		NumDigits:   1,
		FinishOnKey: "",
		Timeout:     5,
	}
	g.Append(twiml.Say{Text: menu.String()})

	session.SongCandidates = results
	if err := m.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("caching song candidates for call %s: %w", session.CallSID, err)
	}

	m.logger.Info("song candidates cached",
		"call_sid", session.CallSID, "query", transcript, "count", len(results))

	return twiml.NewResponse().Append(selectSong, g), nil
}

// HandleSongSelection resolves the caller's digit against the cached
// candidate list and enqueues the chosen track. A session reaching this
// handler without a cached list is a protocol-integrity fault and propagates;
// everything else the caller can get wrong takes the fallback edge.
func (m *Machine) HandleSongSelection(ctx context.Context, ev Event) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	digits, ok := ev.Digits()
	if !ok {
		return m.fallback(ctx, session)
	}

	if session.SongCandidates == nil {
		return nil, fmt.Errorf("call %s: %w", session.CallSID, ErrNoSongCandidates)
	}

	choice, err := strconv.Atoi(digits)
	if err != nil {
		return m.fallback(ctx, session)
	}
	if choice < 1 || choice > len(session.SongCandidates) {
		return m.fallback(ctx, session)
	}
	track := session.SongCandidates[choice-1]

	outcome, err := m.music.Enqueue(ctx, track)
	if err != nil {
		m.logger.Warn("enqueue failed",
			"call_sid", session.CallSID, "track_id", track.ID, "error", err)
		gather, gerr := m.menuGather(ctx, session)
		if gerr != nil {
			return nil, gerr
		}
		return twiml.NewResponse().Append(
			twiml.Say{Text: "Sorry, there isn't a queue to add to"},
			gather,
		), nil
	}
	if !outcome.Success {
		// The candidate cache is kept so the caller can pick again.
		return m.fallback(ctx, session)
	}

	confirmation := queueConfirmation(track, outcome)

	session.SongCandidates = nil
	if err := m.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("clearing song candidates for call %s: %w", session.CallSID, err)
	}

	m.logger.Info("track queued",
		"call_sid", session.CallSID, "track_id", track.ID, "track", track.DisplayName)

	return twiml.NewResponse().Append(twiml.Say{Text: confirmation}), nil
}

// queueConfirmation composes the spoken confirmation, including queue
// position and a wait estimate when the music service reported them.
func queueConfirmation(track models.Track, outcome models.QueueOutcome) string {
	position := ""
	if outcome.Position != nil {
		position = fmt.Sprintf("Your position in the queue is %d", *outcome.Position)
	}

	wait := "Your song will play soon."
	if outcome.MinutesUntilPlay != nil {
		if *outcome.MinutesUntilPlay > 1 {
			wait = fmt.Sprintf("Your song will play in about %d minutes", *outcome.MinutesUntilPlay)
		} else {
			wait = "Your song will play in less than 1 minute"
		}
	}

	return fmt.Sprintf("I've added %s to the queue. %s. %s!", track.DisplayName, position, wait)
}
