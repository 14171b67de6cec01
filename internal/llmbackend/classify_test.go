package llmbackend

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/nexuscore/monologue/internal/monologue/errkind"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset", syscall.ECONNRESET, true},
		{"dial message", errors.New("Post \"http://x\": dial tcp 127.0.0.1:1: connect: connection refused"), true},
		{"no such host", errors.New("lookup nowhere.invalid: no such host"), true},
		{"plain api error", errors.New("invalid request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestLooksLikeModelNotFound(t *testing.T) {
	if !looksLikeModelNotFound(errors.New("model gemini-x not found")) {
		t.Error("not-found message must classify as model error")
	}
	if !looksLikeModelNotFound(errors.New("got HTTP 404")) {
		t.Error("404 must classify as model error")
	}
	if looksLikeModelNotFound(errors.New("rate limited")) {
		t.Error("unrelated message must not classify as model error")
	}
}

func TestOpenAIClassify_Connection(t *testing.T) {
	b := NewOpenAIBackend(OpenAIConfig{BaseURL: "http://localhost:1"})
	err := b.classify(fmt.Errorf("wrap: %w", syscall.ECONNREFUSED))

	var be *errkind.BackendError
	if !errors.As(err, &be) || be.Kind != errkind.KindBackendConnect {
		t.Errorf("classified as %v", err)
	}
	if be.Prefix() != "[LLM Connection Error:" {
		t.Errorf("prefix = %q", be.Prefix())
	}
}

func TestGeminiClassify_ModelNotFound(t *testing.T) {
	b := &GeminiBackend{}
	err := b.classify(errors.New("models/nope is not found"))

	var be *errkind.BackendError
	if !errors.As(err, &be) || be.Kind != errkind.KindBackendModel {
		t.Errorf("classified as %v", err)
	}
	if be.Prefix() != "[LLM Model Error:" {
		t.Errorf("prefix = %q", be.Prefix())
	}
}
