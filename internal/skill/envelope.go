package skill

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Version is the protocol version stamped on every response.
const Version = "1.0"

// Request types understood by the classifier.
const (
	TypeLaunch       = "LaunchRequest"
	TypeIntent       = "IntentRequest"
	TypeSessionEnded = "SessionEndedRequest"
)

// maxRequestBytes bounds the inbound envelope; real platform requests are a few KiB.
const maxRequestBytes = 1 << 20

// RequestEnvelope is the subset of the voice-platform request voxbridge reads.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Context Context `json:"context"`
	Request Request `json:"request"`
}

// Session carries per-conversation metadata.
type Session struct {
	New         bool        `json:"new"`
	SessionID   string      `json:"sessionId"`
	Application Application `json:"application"`
}

// Context carries device and system metadata.
type Context struct {
	System System `json:"System"`
}

// System identifies the calling skill.
type System struct {
	Application Application `json:"application"`
}

// Application holds the skill identifier.
type Application struct {
	ApplicationID string `json:"applicationId"`
}

// Request is the typed request body.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Intent    Intent `json:"intent"`
	// Reason is set on SessionEndedRequest.
	Reason string `json:"reason,omitempty"`
}

// Intent is the resolved user intent with its slots.
type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

// Slot is one captured value.
type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ApplicationID returns the skill id the request claims, preferring the
// session copy over the context copy.
func (r *RequestEnvelope) ApplicationID() string {
	if id := r.Session.Application.ApplicationID; id != "" {
		return id
	}
	return r.Context.System.Application.ApplicationID
}

// SlotValue returns the value of the named slot, or "" if absent.
func (r *RequestEnvelope) SlotValue(name string) string {
	return r.Request.Intent.Slots[name].Value
}

// ResponseEnvelope is the top-level response returned to the platform.
type ResponseEnvelope struct {
	Version           string         `json:"version"`
	SessionAttributes map[string]any `json:"sessionAttributes"`
	Response          Response       `json:"response"`
}

// Response is the speech part of the envelope. Both fields are omitted for
// SessionEndedRequest, which requires an empty object.
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

// Speech types.
const (
	SpeechPlainText = "PlainText"
	SpeechSSML      = "SSML"
)

// OutputSpeech is either plain text or SSML.
type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

// Decode reads a request envelope from r.
func Decode(r io.Reader) (*RequestEnvelope, error) {
	var env RequestEnvelope
	if err := sonic.ConfigStd.NewDecoder(io.LimitReader(r, maxRequestBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("skill: decoding request: %w", err)
	}
	return &env, nil
}

// Encode writes a response envelope to w.
func Encode(w io.Writer, env ResponseEnvelope) error {
	data, err := sonic.ConfigDefault.Marshal(env)
	if err != nil {
		return fmt.Errorf("skill: encoding response: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func plainText(text string, endSession bool) ResponseEnvelope {
	return ResponseEnvelope{
		Version:           Version,
		SessionAttributes: map[string]any{},
		Response: Response{
			OutputSpeech:     &OutputSpeech{Type: SpeechPlainText, Text: text},
			ShouldEndSession: &endSession,
		},
	}
}

func audioSSML(ssml string) ResponseEnvelope {
	endSession := false
	return ResponseEnvelope{
		Version:           Version,
		SessionAttributes: map[string]any{},
		Response: Response{
			OutputSpeech:     &OutputSpeech{Type: SpeechSSML, SSML: ssml},
			ShouldEndSession: &endSession,
		},
	}
}

func empty() ResponseEnvelope {
	return ResponseEnvelope{Version: Version, SessionAttributes: map[string]any{}}
}
