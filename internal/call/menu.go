package call

import (
	"context"

	"github.com/partyline/partyline/internal/database/models"
	"github.com/partyline/partyline/internal/twiml"
)

// HandleMenuSelection dispatches the caller's top-level menu choice.
// Valid digits are 1-6 and star; anything else takes the fallback edge.
func (m *Machine) HandleMenuSelection(ctx context.Context, ev Event) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	digit, ok := ev.Digits()
	if !ok {
		return m.fallback(ctx, session)
	}

	m.logger.Info("menu selection", "call_sid", session.CallSID, "digit", digit)

	switch digit {
	case "1":
		resp := twiml.NewResponse()
		if err := m.promptForSong(ctx, resp, session); err != nil {
			return nil, err
		}
		return resp, nil
	case "2":
		jobID := m.devices.Submit()
		m.logger.Info("color change submitted", "call_sid", session.CallSID, "job_id", jobID)
		lights, err := m.clip(ctx, session, "lights")
		if err != nil {
			return nil, err
		}
		return twiml.NewResponse().Append(lights), nil
	case "3":
		joke, err := m.clip(ctx, session, "joke1")
		if err != nil {
			return nil, err
		}
		return twiml.NewResponse().Append(joke), nil
	case "4":
		return m.offerRecording(ctx, session)
	case "5":
		number, err := m.surpriseNumber(ctx)
		if err != nil {
			return nil, err
		}
		return twiml.NewResponse().Append(
			twiml.Say{Text: "Please wait while we connect you to something special."},
			twiml.Dial{Number: number, RingTone: "us"},
		), nil
	case "6":
		return m.AnswerCall(ctx, ev)
	case "*":
		g := &twiml.Gather{
			Input:       "dtmf",
			Action:      RouteAccessCode,
			Method:      "POST",
			NumDigits:   20,
			FinishOnKey: "#",
			Timeout:     5,
		}
		g.Append(twiml.Say{Text: "Enter access code, then press pound."})
		return twiml.NewResponse().Append(g), nil
	default:
		return m.fallback(ctx, session)
	}
}

// surpriseNumber draws a random dial-out candidate from the stored settings,
// falling back to the static configuration list when the settings carry none.
func (m *Machine) surpriseNumber(ctx context.Context) (string, error) {
	settings, err := m.settings.GetOrInit(ctx)
	if err != nil {
		return "", err
	}
	if len(settings.SurpriseNumbers) > 0 {
		return pickRandom(settings.SurpriseNumbers), nil
	}
	if len(m.cfg.SurpriseNumbers) > 0 {
		return pickRandom(m.cfg.SurpriseNumbers), nil
	}
	return "", nil
}

// offerRecording plays a random recent published recording (skipped silently
// when none exists or the lookup fails), then prompts the caller to record
// their own message.
func (m *Machine) offerRecording(ctx context.Context, session *models.CallSession) (*twiml.Response, error) {
	resp := twiml.NewResponse()

	rec, err := m.recordings.RecentPublishedRandom(ctx)
	if err != nil {
		m.logger.Warn("recent recording lookup failed, skipping playback",
			"call_sid", session.CallSID, "error", err)
	} else if rec != nil {
		resp.Append(
			twiml.Pause{Length: 1},
			twiml.Say{Text: "A friend wants to tell you something..."},
			twiml.Play{URL: rec.URL},
			twiml.Say{Text: "Now, wasn't that nice?"},
			twiml.Pause{Length: 1},
		)
	}

	afterBeep, err := m.clip(ctx, session, "after-beep")
	if err != nil {
		return nil, err
	}
	resp.Append(afterBeep, recordVerb())
	return resp, nil
}

// recordVerb builds the voice-message Record instruction: 15 seconds max,
// beep, silence trimmed, finished with pound.
func recordVerb() twiml.Record {
	return twiml.Record{
		Action:      RouteRecordingFinished,
		Method:      "POST",
		Timeout:     5,
		FinishOnKey: "#",
		MaxLength:   15,
		PlayBeep:    true,
		Trim:        "trim-silence",
	}
}
