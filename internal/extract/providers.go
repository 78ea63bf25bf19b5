package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/huntd/internal/ollama"
)

const localExtractionTimeout = 45 * time.Second

// OllamaChatter is the interface for structured chat via a local model.
type OllamaChatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// OllamaProvider extracts with a local Ollama model.
type OllamaProvider struct {
	client OllamaChatter
	model  string
}

// NewOllamaProvider creates a local-model provider.
func NewOllamaProvider(client OllamaChatter, model string) *OllamaProvider {
	return &OllamaProvider{client: client, model: model}
}

func (p *OllamaProvider) Name() string { return "ollama/" + p.model }

func (p *OllamaProvider) Extract(ctx context.Context, sender, subject, body string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, localExtractionTimeout)
	defer cancel()

	messages := []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(sender, subject, body)},
	}

	raw, err := p.client.Chat(ctx, p.model, messages, recordSchema())
	if err != nil {
		return nil, fmt.Errorf("ollama extraction: %w", err)
	}
	return decodeFields(raw)
}

// OpenRouterChatter is the interface for structured chat via the cloud proxy.
type OpenRouterChatter interface {
	Complete(ctx context.Context, model, system, user string, jsonSchema any) (string, error)
}

// OpenRouterProvider extracts with a cloud model behind OpenRouter.
type OpenRouterProvider struct {
	client OpenRouterChatter
	model  string
}

// NewOpenRouterProvider creates a cloud-model provider.
func NewOpenRouterProvider(client OpenRouterChatter, model string) *OpenRouterProvider {
	return &OpenRouterProvider{client: client, model: model}
}

func (p *OpenRouterProvider) Name() string { return "openrouter/" + p.model }

func (p *OpenRouterProvider) Extract(ctx context.Context, sender, subject, body string) (map[string]any, error) {
	raw, err := p.client.Complete(ctx, p.model, systemPrompt, BuildPrompt(sender, subject, body), recordSchema())
	if err != nil {
		return nil, fmt.Errorf("openrouter extraction: %w", err)
	}
	return decodeFields(raw)
}

// decodeFields parses a model response into a loose field map. Models
// occasionally wrap JSON in code fences; tolerate that.
func decodeFields(raw string) (map[string]any, error) {
	raw = stripCodeFence(raw)
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	return fields, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

var _ Provider = (*OllamaProvider)(nil)
var _ Provider = (*OpenRouterProvider)(nil)
