package llmbackend

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/nexuscore/monologue/internal/monologue/errkind"
	"github.com/nexuscore/monologue/internal/monologue/llm"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// GeminiConfig configures the Gemini backend adapter.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// GeminiBackend implements llm.Provider over the Gemini API.
type GeminiBackend struct {
	client       *genai.Client
	defaultModel string
}

var _ llm.Provider = (*GeminiBackend)(nil)

// NewGeminiBackend creates the adapter. The API key is required.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{client: client, defaultModel: cfg.DefaultModel}, nil
}

// HealthProbe checks reachability via the model listing endpoint.
func (b *GeminiBackend) HealthProbe(ctx context.Context) error {
	_, err := b.ListModels(ctx)
	return err
}

// ListModels returns the backend's known model names.
func (b *GeminiBackend) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for model, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, b.classify(err)
		}
		if model != nil {
			names = append(names, model.Name)
		}
	}
	return names, nil
}

// Chat streams a completion as plain text chunks.
func (b *GeminiBackend) Chat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	contents, config := buildGeminiRequest(req)
	chunks := make(chan llm.Chunk)

	go func() {
		defer close(chunks)

		for resp, err := range b.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				chunks <- llm.Chunk{Err: b.classify(err)}
				return
			}
			if resp == nil {
				continue
			}
			for _, candidate := range resp.Candidates {
				if candidate == nil || candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part != nil && part.Text != "" {
						select {
						case chunks <- llm.Chunk{Text: part.Text}:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
		chunks <- llm.Chunk{Done: true}
	}()
	return chunks, nil
}

func buildGeminiRequest(req llm.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	var contents []*genai.Content
	for i, m := range req.Messages {
		switch m.Role {
		case monologuemodels.RoleSystem:
			// Gemini carries the system prompt as a SystemInstruction;
			// later system entries fold into user turns like the other
			// adapters do.
			if i == 0 {
				config.SystemInstruction = &genai.Content{
					Parts: []*genai.Part{{Text: m.Content}},
				}
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case monologuemodels.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return contents, config
}

func (b *GeminiBackend) classify(err error) error {
	if looksLikeModelNotFound(err) {
		return llm.ClassifyError(errkind.KindBackendModel, err)
	}
	if isConnectionError(err) {
		return llm.ClassifyError(errkind.KindBackendConnect, err)
	}
	return llm.ClassifyError(errkind.KindBackendOther, err)
}
