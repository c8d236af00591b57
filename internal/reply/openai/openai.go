// Package openai implements reply.Generator with the Chat Completions API.
//
// Any OpenAI-compatible server (Ollama, vLLM, llama.cpp server) can be used
// by setting llm.base_url.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/memory"
	"github.com/nadzzz/voxbridge/internal/reply"
)

const (
	defaultModel     = openai.GPT4oMini
	defaultMaxTokens = 200
	defaultTimeout   = 6 * time.Second
)

// Generator calls the Chat Completions API.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	system      string
}

// New creates a Generator from config.
func New(cfg config.LLMConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}

	g := &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		system:      reply.SystemPrompt(cfg.Persona, cfg.Language),
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	return g
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "openai" }

// Generate sends the persona, history and new utterance to the model.
func (g *Generator) Generate(ctx context.Context, history []memory.Turn, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := reply.BuildMessages(g.system, history, text)
	msgs := make([]openai.ChatCompletionMessage, 0, len(prompt))
	for _, m := range prompt {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", &reply.UpstreamError{Backend: g.Name(), StatusCode: statusCode(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &reply.UpstreamError{Backend: g.Name(), Err: errors.New("no choices in response")}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &reply.UpstreamError{Backend: g.Name(), Err: fmt.Errorf("empty content (finish reason %q)", resp.Choices[0].FinishReason)}
	}

	slog.Debug("completion received",
		"model", g.model,
		"history", len(history),
		"reply_length", len(content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start))
	return content, nil
}

// statusCode extracts the HTTP status from go-openai errors.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
