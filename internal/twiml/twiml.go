// Package twiml models the ordered telephony instructions returned to the
// provider in response to one webhook event, and renders them as TwiML XML.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Verb is implemented by every TwiML instruction.
type Verb interface {
	verb()
}

// Response is the root element: an ordered list of verbs executed in sequence.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []Verb
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

// Append adds verbs to the end of the response and returns it for chaining.
func (r *Response) Append(verbs ...Verb) *Response {
	r.Verbs = append(r.Verbs, verbs...)
	return r
}

// Render serializes the response to a TwiML document, including the XML header.
func (r *Response) Render() (string, error) {
	out, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling twiml response: %w", err)
	}
	return xml.Header + string(out), nil
}

// Say speaks text to the caller using the provider's TTS voice.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

func (Say) verb() {}

// Play plays an audio clip from a URL.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	Loop    int      `xml:"loop,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

func (Play) verb() {}

// Pause waits silently for the given number of seconds.
type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

func (Pause) verb() {}

// Gather collects DTMF digits or speech and posts the result to Action.
// FinishOnKey is always emitted: an empty value explicitly disables the
// provider's default "#" terminator.
type Gather struct {
	XMLName         xml.Name `xml:"Gather"`
	Input           string   `xml:"input,attr,omitempty"` // "dtmf" or "speech"
	Action          string   `xml:"action,attr"`
	Method          string   `xml:"method,attr,omitempty"`
	NumDigits       int      `xml:"numDigits,attr,omitempty"`
	FinishOnKey     string   `xml:"finishOnKey,attr"`
	Timeout         int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout   string   `xml:"speechTimeout,attr,omitempty"`
	SpeechModel     string   `xml:"speechModel,attr,omitempty"`
	ProfanityFilter string   `xml:"profanityFilter,attr,omitempty"` // "true"/"false"
	Verbs           []Verb
}

func (Gather) verb() {}

// Append nests verbs (Say/Play) inside the gather prompt.
func (g *Gather) Append(verbs ...Verb) *Gather {
	g.Verbs = append(g.Verbs, verbs...)
	return g
}

// Record records the caller's voice and posts the recording URL to Action.
type Record struct {
	XMLName     xml.Name `xml:"Record"`
	Action      string   `xml:"action,attr"`
	Method      string   `xml:"method,attr,omitempty"`
	Timeout     int      `xml:"timeout,attr,omitempty"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	MaxLength   int      `xml:"maxLength,attr,omitempty"`
	PlayBeep    bool     `xml:"playBeep,attr"`
	Trim        string   `xml:"trim,attr,omitempty"`
	Transcribe  bool     `xml:"transcribe,attr"`
}

func (Record) verb() {}

// Dial connects the caller to another number.
type Dial struct {
	XMLName  xml.Name `xml:"Dial"`
	RingTone string   `xml:"ringTone,attr,omitempty"`
	Number   string   `xml:",chardata"`
}

func (Dial) verb() {}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func (Hangup) verb() {}
