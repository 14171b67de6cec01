package context

import (
	"testing"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

func TestNextAgentID(t *testing.T) {
	c := New(Config{MaxMonologueIterations: 5, ChatModel: "m"}, nil)

	if got := c.NextAgentID(); got != 0 {
		t.Errorf("empty context next id = %d, want 0", got)
	}

	root := c.CreateAgent(0, nil, "")
	if got := c.NextAgentID(); got != 1 {
		t.Errorf("next id = %d, want 1", got)
	}

	c.CreateAgent(1, root, "sub prompt")
	if got := c.NextAgentID(); got != 2 {
		t.Errorf("next id = %d, want 2", got)
	}
}

func TestCreateAgent_Wiring(t *testing.T) {
	c := New(Config{MaxMonologueIterations: 5, ChatModel: "m"}, nil)
	root := c.CreateAgent(0, nil, "")
	sub := c.CreateAgent(1, root, "override")

	if !root.IsRoot() {
		t.Error("root must report IsRoot")
	}
	if sub.IsRoot() {
		t.Error("subordinate must not report IsRoot")
	}
	if sub.Parent != root || sub.Context != c {
		t.Error("subordinate back-references wrong")
	}
	if sub.SystemPromptOverride != "override" {
		t.Errorf("override = %q", sub.SystemPromptOverride)
	}
	if c.GetAgent(1) != sub {
		t.Error("GetAgent(1) != sub")
	}
}

func TestSharedToolCacheAcrossAgents(t *testing.T) {
	// The open-question decision: subordinates share the parent
	// context's cache, so a value computed by one agent is visible to
	// another.
	c := New(Config{}, nil)
	c.ToolCache.Set("k", monologuemodels.ToolResponse{Message: "v"})

	if got, ok := c.ToolCache.Get("k"); !ok || got.Message != "v" {
		t.Errorf("cache lookup failed: %+v ok=%v", got, ok)
	}
}

func TestHistory_AppendSnapshot(t *testing.T) {
	c := New(Config{}, nil)
	a := c.CreateAgent(0, nil, "")

	a.History.Append(monologuemodels.RoleUser, "one")
	snap := a.History.Snapshot()
	a.History.Append(monologuemodels.RoleAssistant, "two")

	if len(snap) != 1 {
		t.Errorf("snapshot must not observe later appends; len = %d", len(snap))
	}
	if a.History.Len() != 2 {
		t.Errorf("history len = %d, want 2", a.History.Len())
	}
	if snap[0].CreatedAt.IsZero() {
		t.Error("appended messages must carry a timestamp")
	}
}

func TestLastToolName(t *testing.T) {
	c := New(Config{}, nil)
	a := c.CreateAgent(0, nil, "")

	if a.GetLastToolName() != "" {
		t.Error("initial last tool name must be empty")
	}
	a.SetLastToolName("memory")
	if a.GetLastToolName() != "memory" {
		t.Error("last tool name not recorded")
	}
}

func TestSharedData(t *testing.T) {
	c := New(Config{}, nil)
	c.SharedData().Store("pool", 42)

	v, ok := c.SharedData().Load("pool")
	if !ok || v != 42 {
		t.Errorf("shared data roundtrip failed: %v ok=%v", v, ok)
	}
}
