package call

import (
	"context"

	"github.com/partyline/partyline/internal/twiml"
)

// HandleAccessCode checks the gathered digits against the configured admin
// code. A match prompts for a destination number; anything else takes the
// fallback edge.
func (m *Machine) HandleAccessCode(ctx context.Context, ev Event) (*twiml.Response, error) {
	session, err := m.getOrCreateSession(ctx, ev)
	if err != nil {
		return nil, err
	}

	digits, ok := ev.Digits()
	if !ok || m.cfg.AccessCode == "" || digits != m.cfg.AccessCode {
		return m.fallback(ctx, session)
	}

	m.logger.Info("access code accepted", "call_sid", session.CallSID)

	g := &twiml.Gather{
		Input:       "dtmf",
		Action:      RouteDialNumber,
		Method:      "POST",
		NumDigits:   20,
		FinishOnKey: "#",
		Timeout:     5,
	}
	g.Append(twiml.Say{Text: "Enter phone number to connect and press pound"})
	return twiml.NewResponse().Append(g), nil
}

// HandleDialNumber dials the gathered destination number.
func (m *Machine) HandleDialNumber(ctx context.Context, ev Event) (*twiml.Response, error) {
	if _, err := m.getOrCreateSession(ctx, ev); err != nil {
		return nil, err
	}

	digits, ok := ev.Digits()
	if !ok {
		return twiml.NewResponse().Append(twiml.Say{Text: "A problem occurred"}), nil
	}

	m.logger.Info("dialing out", "call_sid", ev.CallSID())

	return twiml.NewResponse().Append(
		twiml.Say{Text: "Dialing. Please wait"},
		twiml.Dial{Number: digits},
	), nil
}
