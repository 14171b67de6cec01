// Package llmbackend provides concrete implementations of the LLM backend
// contract the monologue core consumes: a health probe, a list-models
// operation, and a streaming chat call yielding plain text chunks. Tool
// definitions are never sent to any backend; tool calls are extracted from
// the accumulated text by the output parser.
package llmbackend

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexuscore/monologue/internal/monologue/errkind"
	"github.com/nexuscore/monologue/internal/monologue/llm"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// AnthropicConfig configures the Anthropic backend adapter.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
}

// AnthropicBackend implements llm.Provider over the Anthropic Messages API.
type AnthropicBackend struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int
}

var _ llm.Provider = (*AnthropicBackend)(nil)

// NewAnthropicBackend creates the adapter. The API key is required.
func NewAnthropicBackend(cfg AnthropicConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicBackend{
		client:       anthropic.NewClient(options...),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

// HealthProbe checks reachability via the model listing endpoint.
func (b *AnthropicBackend) HealthProbe(ctx context.Context) error {
	_, err := b.ListModels(ctx)
	return err
}

// ListModels returns the backend's known model ids.
func (b *AnthropicBackend) ListModels(ctx context.Context) ([]string, error) {
	page, err := b.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, b.classify(err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, string(m.ID))
	}
	return names, nil
}

// Chat streams a completion as plain text chunks.
func (b *AnthropicBackend) Chat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	params := b.buildParams(req)
	chunks := make(chan llm.Chunk)

	go func() {
		defer close(chunks)

		stream := b.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta().Delta
			if delta.Type == "text_delta" && delta.Text != "" {
				select {
				case chunks <- llm.Chunk{Text: delta.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			chunks <- llm.Chunk{Err: b.classify(err)}
			return
		}
		chunks <- llm.Chunk{Done: true}
	}()

	return chunks, nil
}

func (b *AnthropicBackend) buildParams(req llm.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(b.maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	// The Messages API carries the system prompt out of band and has no
	// system role mid-conversation: the leading system message becomes
	// params.System, later system entries (tool results, reminders) fold
	// into user turns.
	var messages []anthropic.MessageParam
	for i, m := range req.Messages {
		switch m.Role {
		case monologuemodels.RoleSystem:
			if i == 0 {
				params.System = []anthropic.TextBlockParam{{Type: "text", Text: m.Content}}
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case monologuemodels.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params.Messages = messages
	return params
}

// classify maps SDK failures onto the core's backend error taxonomy:
// HTTP 404 means the model is unknown, transport-level failures mean the
// backend is unreachable, everything else is unclassified.
func (b *AnthropicBackend) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 404 {
			return llm.ClassifyError(errkind.KindBackendModel, err)
		}
		return llm.ClassifyError(errkind.KindBackendOther, err)
	}
	if isConnectionError(err) {
		return llm.ClassifyError(errkind.KindBackendConnect, err)
	}
	return llm.ClassifyError(errkind.KindBackendOther, err)
}
