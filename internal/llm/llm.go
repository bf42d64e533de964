// Package llm is a thin pass-through to the OpenAI chat-completion API: the
// caller supplies a prompt and optional overrides, the service relays the
// model's answer.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	defaultModel       = "gpt-4o"
	defaultTemperature = 0.7
	defaultSystem      = "You are a helpful assistant."
)

// Request is one prompt with optional overrides. Zero values fall back to
// the service defaults.
type Request struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	System      string   `json:"system,omitempty"`
}

// Response carries the model's answer and the model that produced it.
type Response struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
}

// Service wraps one API client.
type Service struct {
	client *openai.Client
	model  string
	log    *logrus.Entry
}

// New creates a service. model overrides the default for calls that don't
// name one themselves.
func New(apiKey, model string) *Service {
	if model == "" {
		model = defaultModel
	}
	return &Service{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    logrus.WithField("component", "llm"),
	}
}

// Query relays one prompt and returns the trimmed answer.
func (s *Service) Query(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = s.model
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	system := req.System
	if system == "" {
		system = defaultSystem
	}

	s.log.WithField("model", model).Debug("querying model")
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return &Response{
		Answer: strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:  model,
	}, nil
}

// ExtractJSON asks the model for structured financial data and decodes the
// answer, tolerating a ```json fence around it.
func (s *Service) ExtractJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	zero := 0.0
	resp, err := s.Query(ctx, Request{
		Prompt:      prompt,
		Temperature: &zero,
		System:      "Extract structured financial data in JSON format. Include currency if given, otherwise assume EUR.",
	})
	if err != nil {
		return nil, err
	}

	content := StripJSONFence(resp.Answer)
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model output as JSON: %w", err)
	}
	return out, nil
}

// StripJSONFence removes a surrounding markdown code fence, if present.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.ReplaceAll(s, "```", "")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.ReplaceAll(s, "```", "")
	}
	return strings.TrimSpace(s)
}
