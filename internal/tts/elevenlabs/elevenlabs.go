// Package elevenlabs implements tts.Synthesizer with the ElevenLabs streaming
// HTTP endpoint.
//
// The whole reply text is sent in one request to
// POST /v1/text-to-speech/{voice_id}/stream and the chunked response body is
// collected into a single buffer.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/tts"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io"
	defaultModelID      = "eleven_turbo_v2_5"
	defaultOutputFormat = "mp3_44100_128"
	defaultTimeout      = 7 * time.Second

	maxAudioBytes = 20 << 20
)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type streamRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesizer calls the ElevenLabs streaming endpoint.
type Synthesizer struct {
	apiKey  string
	baseURL string
	modelID string
	voice   tts.Request // template; Text is filled per call
	timeout time.Duration
	client  *http.Client
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a Synthesizer from config.
func New(cfg config.ElevenLabsConfig, opts ...Option) (*Synthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("elevenlabs: api key must not be empty")
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		return nil, errors.New("elevenlabs: voice id must not be empty")
	}

	s := &Synthesizer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		modelID: cfg.ModelID,
		voice: tts.Request{
			VoiceID:         cfg.VoiceID,
			Language:        cfg.Language,
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			OutputFormat:    cfg.OutputFormat,
		},
		timeout: cfg.Timeout,
		client:  &http.Client{},
	}
	if s.baseURL == "" {
		s.baseURL = defaultBaseURL
	}
	if s.modelID == "" {
		s.modelID = defaultModelID
	}
	if s.voice.OutputFormat == "" {
		s.voice.OutputFormat = defaultOutputFormat
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "elevenlabs" }

// Synthesize streams speech for text and returns the collected audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: empty text for synthesis")
	}

	req := s.voice
	req.Text = text

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := s.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &tts.UpstreamError{Backend: s.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &tts.UpstreamError{
			Backend:    s.Name(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, &tts.UpstreamError{Backend: s.Name(), Err: fmt.Errorf("reading audio stream: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &tts.UpstreamError{Backend: s.Name(), Err: errors.New("empty audio stream")}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(req.OutputFormat)
	}

	slog.Debug("elevenlabs synthesis complete",
		"voice", req.VoiceID,
		"text_length", len(text),
		"audio_bytes", len(audio),
		"duration", time.Since(start))
	return &tts.Result{Audio: audio, ContentType: contentType}, nil
}

func (s *Synthesizer) newRequest(ctx context.Context, req tts.Request) (*http.Request, error) {
	body, err := json.Marshal(streamRequest{
		Text:         req.Text,
		ModelID:      s.modelID,
		LanguageCode: req.Language,
		VoiceSettings: voiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?%s",
		s.baseURL,
		url.PathEscape(req.VoiceID),
		url.Values{"output_format": {req.OutputFormat}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentTypeFor(req.OutputFormat))
	return httpReq, nil
}

// Close is a no-op; requests share the HTTP client's connection pool.
func (s *Synthesizer) Close() error { return nil }

// contentTypeFor maps an ElevenLabs output_format ("mp3_44100_128",
// "pcm_24000", "ulaw_8000") to a MIME type.
func contentTypeFor(format string) string {
	codec, _, _ := strings.Cut(format, "_")
	switch codec {
	case "mp3":
		return "audio/mpeg"
	case "pcm":
		return "audio/pcm"
	case "ulaw":
		return "audio/basic"
	case "opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
