package call

import (
	"context"
	"errors"

	"github.com/partyline/partyline/internal/twiml"
)

// HandleRecordingFinished persists the just-finished recording, plays it back
// to the caller, and gathers the save-or-discard decision. The command route
// carries the new recording's id so the next event can resolve it.
func (m *Machine) HandleRecordingFinished(ctx context.Context, ev Event) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	url, ok := ev.RecordingURL()
	if !ok {
		return m.fallback(ctx, session)
	}

	rec, err := m.recordings.Create(ctx, session.CallSID, url)
	if err != nil {
		return nil, err
	}

	m.logger.Info("recording saved",
		"call_sid", session.CallSID, "recording_id", rec.ID)

	saveOrRecord, err := m.clip(ctx, session, "save-or-record")
	if err != nil {
		return nil, err
	}
	g := &twiml.Gather{
		Input:       "dtmf",
		Action:      RouteRecordingCommand + "?recordingId=" + rec.ID,
		Method:      "POST",
		NumDigits:   1,
		FinishOnKey: "#",
		Timeout:     10,
	}
	g.Append(saveOrRecord)

	return twiml.NewResponse().Append(twiml.Play{URL: url}, g), nil
}

// HandleRecordingCommand applies the caller's decision about the recording
// identified by recordingID: 9 discards it and offers a fresh take, 1
// publishes it for future callers. Publishing twice is a no-op; a recording
// that has since vanished degrades to the fallback rather than failing the
// call.
func (m *Machine) HandleRecordingCommand(ctx context.Context, ev Event, recordingID string) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	digit, ok := ev.Digits()
	if !ok {
		return m.fallback(ctx, session)
	}

	switch digit {
	case "9":
		if err := m.recordings.Delete(ctx, recordingID); err != nil {
			return nil, err
		}
		m.logger.Info("recording discarded",
			"call_sid", session.CallSID, "recording_id", recordingID)
		afterBeep, err := m.clip(ctx, session, "after-beep")
		if err != nil {
			return nil, err
		}
		return twiml.NewResponse().Append(afterBeep, recordVerb()), nil
	case "1":
		err := m.recordings.Publish(ctx, recordingID)
		if errors.Is(err, ErrRecordingNotFound) {
			m.logger.Warn("stale recording callback",
				"call_sid", session.CallSID, "recording_id", recordingID)
			return m.fallback(ctx, session)
		}
		if err != nil {
			return nil, err
		}
		m.logger.Info("recording published",
			"call_sid", session.CallSID, "recording_id", recordingID)
		saved, err := m.clip(ctx, session, "recording-saved")
		if err != nil {
			return nil, err
		}
		return twiml.NewResponse().Append(saved), nil
	default:
		return m.fallback(ctx, session)
	}
}
