// Package llm declares the LLM backend contract the monologue core
// consumes: a health probe, a list-models operation, and a streaming chat
// call that yields a lazy, finite, non-restartable sequence of plain text
// chunks. Tool calls are never native here; the output parser extracts
// them from the accumulated text.
package llm

import (
	"context"

	"github.com/nexuscore/monologue/internal/monologue/errkind"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// ChatRequest is the plain-text completion request the core sends.
type ChatRequest struct {
	Model       string
	Messages    []monologuemodels.Message
	Temperature float64
	// Options carries backend-specific, otherwise-opaque settings (e.g.
	// context window size) the core never interprets.
	Options map[string]any
}

// Chunk is one piece of a streaming response. Done=true marks the final
// chunk (Text may be empty on the terminal chunk). Err, when non-nil, ends
// the stream immediately and is classified via errkind.BackendError.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// Provider is the interface concrete adapters (internal/llmbackend/*)
// implement.
type Provider interface {
	// HealthProbe reports whether the backend is reachable.
	HealthProbe(ctx context.Context) error
	// ListModels returns the backend's currently known model names.
	ListModels(ctx context.Context) ([]string, error)
	// Chat streams a completion. The returned channel is closed after the
	// final chunk (Done=true or a non-nil Err) is sent.
	Chat(ctx context.Context, req ChatRequest) (<-chan Chunk, error)
}

// ClassifyError wraps a raw backend error as a *errkind.BackendError.
// Concrete adapters call this so the scheduler sees a uniform taxonomy
// regardless of which SDK produced the failure.
func ClassifyError(kind errkind.Kind, err error) error {
	if err == nil {
		return nil
	}
	return errkind.NewBackendError(kind, err)
}
