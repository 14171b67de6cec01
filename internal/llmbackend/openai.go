package llmbackend

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexuscore/monologue/internal/monologue/errkind"
	"github.com/nexuscore/monologue/internal/monologue/llm"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// OpenAIConfig configures the OpenAI-compatible backend adapter. BaseURL
// may point at any OpenAI-compatible endpoint (including a local Ollama
// server's /v1 route), which is the usual local-model deployment here.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// OpenAIBackend implements llm.Provider over an OpenAI-compatible chat API.
type OpenAIBackend struct {
	client       *openai.Client
	defaultModel string
}

var _ llm.Provider = (*OpenAIBackend)(nil)

// NewOpenAIBackend creates the adapter. An empty APIKey is allowed for
// local endpoints that do not authenticate.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openai.GPT4oMini
	}
	return &OpenAIBackend{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}
}

// HealthProbe checks reachability via the model listing endpoint.
func (b *OpenAIBackend) HealthProbe(ctx context.Context) error {
	_, err := b.ListModels(ctx)
	return err
}

// ListModels returns the backend's known model ids.
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, b.classify(err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// Chat streams a completion as plain text chunks.
func (b *OpenAIBackend) Chat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Stream:   true,
		Messages: convertOpenAIMessages(req.Messages),
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}

	stream, err := b.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, b.classify(err)
	}

	chunks := make(chan llm.Chunk)
	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- llm.Chunk{Done: true}
				return
			}
			if err != nil {
				chunks <- llm.Chunk{Err: b.classify(err)}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content != "" {
					select {
					case chunks <- llm.Chunk{Text: choice.Delta.Content}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return chunks, nil
}

func convertOpenAIMessages(messages []monologuemodels.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func (b *OpenAIBackend) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 404 {
			return llm.ClassifyError(errkind.KindBackendModel, err)
		}
		return llm.ClassifyError(errkind.KindBackendOther, err)
	}
	if isConnectionError(err) {
		return llm.ClassifyError(errkind.KindBackendConnect, err)
	}
	return llm.ClassifyError(errkind.KindBackendOther, err)
}
