package context

import (
	"sync"
	"time"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// History is the append-only ordered sequence of Messages bound to one
// Agent. It is never mutated in place; Snapshot returns a read-only copy
// for prompt assembly.
type History struct {
	mu       sync.Mutex
	messages []monologuemodels.Message
}

// Append adds a Message to the end of History.
func (h *History) Append(role monologuemodels.Role, content string) monologuemodels.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := monologuemodels.Message{Role: role, Content: content, CreatedAt: time.Now().UTC()}
	h.messages = append(h.messages, msg)
	return msg
}

// Snapshot returns a copy of the current message list, safe for a reader
// to hold while the scheduler continues to append.
func (h *History) Snapshot() []monologuemodels.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]monologuemodels.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the number of messages currently in History.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Agent is a per-conversation-branch actor: its own History, id, a
// non-owning back-reference to its parent (nil for the root), and an
// optional system-prompt override for subordinates.
type Agent struct {
	ID                   int
	Context              *AgentContext // non-owning back-reference
	Parent               *Agent        // non-owning; nil for root
	SystemPromptOverride string

	History History

	mu           sync.Mutex
	LastToolName string
	Data         map[string]any // per-agent scratch, e.g. memory_context
}

// SetLastToolName records the most recently executed tool's name, read by
// the Model Router's tool-affinity rule.
func (a *Agent) SetLastToolName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.LastToolName = name
}

// GetLastToolName returns the most recently executed tool's name, or "" if
// none has run yet this session.
func (a *Agent) GetLastToolName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.LastToolName
}

// IsRoot reports whether this Agent is the root (id 0) of its context.
func (a *Agent) IsRoot() bool {
	return a.Parent == nil
}
