// Package tts defines the interface for text-to-speech synthesis.
//
// voxbridge speaks every assistant reply with one fixed voice. A synthesizer
// returns the backend's raw audio; converting it into the playback
// platform's format is the transcoder's job.
package tts

import (
	"context"
	"fmt"
)

// Request is the per-call synthesis input. Everything except Text comes from
// configuration and is identical for every call.
type Request struct {
	Text            string
	VoiceID         string
	Language        string // forced ISO-639-1 tag, bypasses backend auto-detection
	Stability       float64
	SimilarityBoost float64
	OutputFormat    string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "elevenlabs", "piper").
	Name() string

	// Synthesize returns the raw audio for text. Any error means speech is
	// unavailable for this reply.
	Synthesize(ctx context.Context, text string) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Result holds the output of TTS synthesis.
type Result struct {
	// Audio is the encoded audio exactly as the backend produced it.
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/mpeg", "audio/wav").
	ContentType string
}

// UpstreamError reports a non-success status or transport failure.
type UpstreamError struct {
	Backend    string
	StatusCode int    // 0 when no response was received
	Body       string // truncated response body, for logs only
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("tts: %s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("tts: %s: %v", e.Backend, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
