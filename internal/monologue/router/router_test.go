package router

import (
	"testing"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

func s7Config() Config {
	return Config{
		Enabled:   true,
		ChatModel: "chat",
		Routes: map[string]string{
			RouteReasoning:     "b",
			RouteCoding:        "c",
			RouteSummarization: "s",
			RouteDefault:       "b",
		},
	}
}

func userMsg(content string) []monologuemodels.Message {
	return []monologuemodels.Message{{Role: monologuemodels.RoleUser, Content: content}}
}

func TestSelectModel_S7(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		// Triple backticks route to coding; "c" is available.
		{"code fence", "fix this:\n```\nx := 1\n```", "c"},
		// Summarization routes to "s", which is unavailable; falls back
		// to default "b", which is available.
		{"summary fallback", "Summarize the following.", "b"},
		{"plain reasoning", "What should I have for lunch?", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(s7Config())
			r.SetAvailableModels([]string{"b", "c"})
			if got := r.SelectModel(userMsg(tt.message), ""); got != tt.want {
				t.Errorf("SelectModel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectModel_RoutingDisabled(t *testing.T) {
	r := New(Config{Enabled: false, ChatModel: "chat"})
	if got := r.SelectModel(userMsg("```code```"), ""); got != "chat" {
		t.Errorf("got %q, want chat model when routing disabled", got)
	}
}

func TestSelectModel_ToolAffinityWinsOverHeuristics(t *testing.T) {
	cfg := s7Config()
	cfg.ToolAffinity = map[string]string{"exec": RouteCoding}
	r := New(cfg)
	r.SetAvailableModels([]string{"b", "c"})

	// Message looks like a summary, but the last tool has an affinity.
	if got := r.SelectModel(userMsg("Summarize the output."), "exec"); got != "c" {
		t.Errorf("got %q, want c via tool affinity", got)
	}
}

func TestSelectModel_TagPrefixCountsAsAvailable(t *testing.T) {
	r := New(s7Config())
	r.SetAvailableModels([]string{"c:latest", "b"})

	if got := r.SelectModel(userMsg("```go\nfunc main() {}\n```"), ""); got != "c" {
		t.Errorf("got %q, want c (available via c:latest)", got)
	}
}

func TestSelectModel_EmptyAvailabilityNeverFilters(t *testing.T) {
	r := New(s7Config())
	// No SetAvailableModels call yet: availability is unknown.
	if got := r.SelectModel(userMsg("Summarize this."), ""); got != "s" {
		t.Errorf("got %q, want s (unknown availability must not filter)", got)
	}
}

func TestSelectModel_FallsBackToChatModel(t *testing.T) {
	cfg := Config{
		Enabled:   true,
		ChatModel: "chat",
		Routes:    map[string]string{RouteCoding: "c"},
	}
	r := New(cfg)
	r.SetAvailableModels([]string{"other"})

	// "c" unavailable, no default route: chat model is the last resort.
	if got := r.SelectModel(userMsg("```x```"), ""); got != "chat" {
		t.Errorf("got %q, want chat", got)
	}
}

func TestSelectModel_SummaryKeywords(t *testing.T) {
	r := New(s7Config())
	r.SetAvailableModels([]string{"b", "c", "s"})

	for _, msg := range []string{
		"Give me a tl;dr of this thread",
		"Can you condense these notes?",
		"I need a high-level overview",
		"What are the key points here?",
	} {
		if got := r.SelectModel(userMsg(msg), ""); got != "s" {
			t.Errorf("SelectModel(%q) = %q, want s", msg, got)
		}
	}
}

func TestSelectModel_UsesLastUserMessage(t *testing.T) {
	r := New(s7Config())
	r.SetAvailableModels([]string{"b", "c", "s"})

	messages := []monologuemodels.Message{
		{Role: monologuemodels.RoleUser, Content: "Summarize everything."},
		{Role: monologuemodels.RoleAssistant, Content: "Sure."},
		{Role: monologuemodels.RoleUser, Content: "Now write a ```go``` snippet."},
	}
	if got := r.SelectModel(messages, ""); got != "c" {
		t.Errorf("got %q, want c from the most recent user message", got)
	}
}
