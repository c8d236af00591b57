// Package skill classifies voice-platform requests and builds the spoken
// response envelope.
//
// Conversational turns run the full pipeline: memory, reply generation,
// speech synthesis, transcoding and artifact publication. Respond is the one
// place where component failures are mapped to user-facing responses; it
// never returns an error and never panics, so the transport can always
// answer with a success status and a well-formed envelope.
package skill

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/nadzzz/voxbridge/internal/artifact"
	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/memory"
	"github.com/nadzzz/voxbridge/internal/reply"
	"github.com/nadzzz/voxbridge/internal/transcode"
	"github.com/nadzzz/voxbridge/internal/tts"
)

const (
	defaultChatIntent    = "ChatIntent"
	defaultUtteranceSlot = "query"
)

// Transcoder re-encodes raw synthesized audio. *transcode.Transcoder satisfies it.
type Transcoder interface {
	Transcode(ctx context.Context, raw []byte) ([]byte, error)
}

// Publisher stores audio and returns its public location. *artifact.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, audio []byte) (*artifact.Artifact, error)
}

// Deps are the collaborators a Handler drives.
type Deps struct {
	Memory      *memory.Store
	Generator   reply.Generator
	Synthesizer tts.Synthesizer
	Transcoder  Transcoder
	Publisher   Publisher
}

// Handler answers voice-platform requests.
type Handler struct {
	rules         Rules
	utteranceSlot string

	memory      *memory.Store
	generator   reply.Generator
	synthesizer tts.Synthesizer
	transcoder  Transcoder
	publisher   Publisher
}

// NewHandler creates a Handler. Every dependency is required.
func NewHandler(cfg config.SkillConfig, deps Deps) (*Handler, error) {
	switch {
	case deps.Memory == nil:
		return nil, errors.New("skill: memory store must not be nil")
	case deps.Generator == nil:
		return nil, errors.New("skill: reply generator must not be nil")
	case deps.Synthesizer == nil:
		return nil, errors.New("skill: synthesizer must not be nil")
	case deps.Transcoder == nil:
		return nil, errors.New("skill: transcoder must not be nil")
	case deps.Publisher == nil:
		return nil, errors.New("skill: publisher must not be nil")
	}

	h := &Handler{
		rules:         Rules{ApplicationID: cfg.ApplicationID, ChatIntent: cfg.ChatIntent},
		utteranceSlot: cfg.UtteranceSlot,
		memory:        deps.Memory,
		generator:     deps.Generator,
		synthesizer:   deps.Synthesizer,
		transcoder:    deps.Transcoder,
		publisher:     deps.Publisher,
	}
	if h.rules.ChatIntent == "" {
		h.rules.ChatIntent = defaultChatIntent
	}
	if h.utteranceSlot == "" {
		h.utteranceSlot = defaultUtteranceSlot
	}
	return h, nil
}

// Handle decodes a raw request body and responds to it. An undecodable body
// gets the generic failure response.
func (h *Handler) Handle(ctx context.Context, body io.Reader) ResponseEnvelope {
	env, err := Decode(body)
	if err != nil {
		slog.Warn("undecodable skill request", "error", err)
		return plainText(phraseFailure, true)
	}
	return h.Respond(ctx, env)
}

// Respond classifies env and builds the response. The pipeline is detached
// from ctx cancellation: once a turn starts it runs to completion or to a
// step timeout.
func (h *Handler) Respond(ctx context.Context, env *RequestEnvelope) (resp ResponseEnvelope) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	kind := Classify(env, h.rules)
	requestID := ""
	if env != nil {
		requestID = env.Request.RequestID
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := slog.With("request_id", requestID, "kind", kind.String())

	if r := panics.Try(func() { resp = h.route(ctx, logger, kind, env) }); r != nil {
		logger.Error("skill handler panicked", "panic", r.Value, "stack", string(r.Stack))
		return plainText(phraseFailure, true)
	}

	logger.Info("skill request handled", "duration", time.Since(start))
	return resp
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, kind Kind, env *RequestEnvelope) ResponseEnvelope {
	switch kind {
	case KindIdentityMismatch:
		logger.Warn("application id mismatch", "got", env.ApplicationID())
		return plainText(phraseUnknownSkill, true)
	case KindLaunchGreeting:
		return plainText(phraseGreeting, false)
	case KindChatTurn:
		return h.chatTurn(ctx, logger, env)
	case KindUnknownIntent:
		logger.Debug("unknown intent", "intent", env.Request.Intent.Name)
		return plainText(phraseDidntGetIt, false)
	case KindSessionEnd:
		logger.Debug("session ended", "reason", env.Request.Reason)
		return empty()
	case KindUnhandledType:
		logger.Warn("unhandled request type", "type", env.Request.Type)
		return plainText(phraseUnhandled, true)
	default:
		return plainText(phraseFailure, true)
	}
}

func (h *Handler) chatTurn(ctx context.Context, logger *slog.Logger, env *RequestEnvelope) ResponseEnvelope {
	text := strings.TrimSpace(env.SlotValue(h.utteranceSlot))
	if text == "" {
		return plainText(phraseDidntHear, false)
	}

	history := h.memory.Snapshot()
	h.memory.Append(memory.RoleUser, text)

	answer, err := h.generator.Generate(ctx, history, text)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		logFailure(logger, "reply generation failed", err)
		answer = phraseApology
	}
	h.memory.Append(memory.RoleAssistant, answer)
	logger.Debug("reply ready", "backend", h.generator.Name(), "chars", len(answer), "history", len(history))

	url, err := h.speak(ctx, logger, answer)
	if err != nil {
		logFailure(logger, "speech unavailable", err)
		return plainText(phraseNoSpeech, true)
	}
	return audioSSML(speakAudio(url))
}

// speak turns text into a published, platform-playable audio URL.
func (h *Handler) speak(ctx context.Context, logger *slog.Logger, text string) (string, error) {
	res, err := h.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	logger.Debug("speech synthesized", "backend", h.synthesizer.Name(), "bytes", len(res.Audio), "content_type", res.ContentType)

	audio, err := h.transcoder.Transcode(ctx, res.Audio)
	if err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}

	a, err := h.publisher.Publish(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return a.URL, nil
}

// logFailure logs err with the attributes of the component error it wraps.
func logFailure(logger *slog.Logger, msg string, err error) {
	attrs := []any{"error", err}

	var (
		replyErr *reply.UpstreamError
		ttsErr   *tts.UpstreamError
		tcErr    *transcode.Error
		storeErr *artifact.StorageError
	)
	switch {
	case errors.As(err, &replyErr):
		attrs = append(attrs, "failure", "upstream_unavailable", "backend", replyErr.Backend, "status", replyErr.StatusCode)
	case errors.As(err, &ttsErr):
		attrs = append(attrs, "failure", "upstream_unavailable", "backend", ttsErr.Backend, "status", ttsErr.StatusCode)
	case errors.As(err, &tcErr):
		attrs = append(attrs, "failure", "transcode_error", "exit_code", tcErr.ExitCode)
	case errors.As(err, &storeErr):
		attrs = append(attrs, "failure", "storage_error", "op", storeErr.Op)
	default:
		attrs = append(attrs, "failure", "unexpected")
	}
	logger.Error(msg, attrs...)
}

// speakAudio wraps url in the SSML that plays it.
func speakAudio(url string) string {
	var b bytes.Buffer
	b.WriteString(`<speak><audio src="`)
	_ = xml.EscapeText(&b, []byte(url))
	b.WriteString(`"/></speak>`)
	return b.String()
}
