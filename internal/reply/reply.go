// Package reply defines the interface for language-model reply generation.
//
// A generator turns the rolling conversation history plus the newest user
// utterance into a short spoken-style answer. The prompt is always assembled
// in the same order: one system persona instruction, the history in
// insertion order, then the new user turn.
package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/nadzzz/voxbridge/internal/memory"
)

// DefaultPersona is used when no persona is configured.
const DefaultPersona = "You are a friendly voice assistant answering through a smart speaker. " +
	"Keep every answer short and conversational, two or three sentences at most. " +
	"Never use markdown, lists, emoji or links, because the answer is read aloud."

// Generator produces a reply for the newest user utterance.
type Generator interface {
	// Name returns the backend identifier (e.g., "openai").
	Name() string

	// Generate returns the assistant reply. history must not include text.
	Generate(ctx context.Context, history []memory.Turn, text string) (string, error)
}

// Message is one entry of an assembled prompt.
type Message struct {
	Role    string
	Content string
}

// SystemPrompt builds the persona instruction, pinning the answer language
// when one is given.
func SystemPrompt(persona, language string) string {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		persona = DefaultPersona
	}
	if language = strings.TrimSpace(language); language != "" {
		persona += fmt.Sprintf("\nAlways answer in the language with ISO-639-1 code %q.", language)
	}
	return persona
}

// BuildMessages assembles the ordered prompt.
func BuildMessages(system string, history []memory.Turn, text string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		msgs = append(msgs, Message{Role: string(t.Role), Content: content})
	}
	return append(msgs, Message{Role: string(memory.RoleUser), Content: text})
}

// UpstreamError reports a failed or unusable completion call.
type UpstreamError struct {
	Backend string
	// StatusCode is the HTTP status returned by the backend, or 0 when the
	// request never got a response.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reply: %s upstream status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reply: %s upstream: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
