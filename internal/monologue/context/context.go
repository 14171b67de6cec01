// Package context holds the shared session state: the agent table, tool
// cache, hook dispatcher, and the optional store and telemetry handles
// every other component reads and writes. One AgentContext lives per
// user-facing conversation and is shared by all agents in its subordinate
// tree.
package context

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nexuscore/monologue/internal/monologue/executor"
	"github.com/nexuscore/monologue/internal/monologue/hooks"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// StreamSink receives each text chunk as the LLM streams a response, so
// subordinate agent output interleaves into the same stream as the root.
type StreamSink func(agentID int, chunk string)

// SessionStore is the optional persistence collaborator. Every operation
// may fail; failures are swallowed and logged by callers, never propagated
// into the monologue loop.
type SessionStore interface {
	AppendMessage(sessionID string, agentID int, msg monologuemodels.Message) error
	AppendToolCall(sessionID, toolName, argsJSON, result string) error
	SetTitle(sessionID string, title string) error
	IncrementTokens(sessionID string, count int) error
}

// ToolMetric is the per-call record handed to the telemetry sink: the
// tool's name, its canonical args key, duration, cache flag, a truncated
// result summary, and the inferred error text (set when the message has
// the bracketed error shape).
type ToolMetric struct {
	Tool       string
	ArgsKey    string
	DurationMS int64
	Cached     bool
	Summary    string
	Err        string
}

// Telemetry is the optional fire-and-forget telemetry sink.
type Telemetry interface {
	RecordLLMCall(sessionID string, model string, durationMS int64, err error)
	RecordToolCall(sessionID string, metric ToolMetric)
	RecordIteration(sessionID string, agentID, iteration int)
	RecordMemoryOp(sessionID string, op string)
	Finalize(sessionID string, terminalTool string)
}

// Config is the immutable per-session configuration every Agent shares.
type Config struct {
	MaxMonologueIterations int
	ChatModel              string
}

// AgentContext owns Agents, the ToolCache, the Hook Dispatcher, and the
// telemetry handle for one user-facing conversation. It is shared by every
// agent in a subordinate tree, including the ToolCache — subordinate
// isolation is explicitly not implemented, per the preserved open question.
type AgentContext struct {
	SessionID string
	Config    Config

	OnStream        StreamSink
	SessionStore    SessionStore // optional; may be nil
	TelemetryHandle Telemetry    // optional; may be nil

	Hooks     *hooks.Dispatcher
	ToolCache *executor.ToolCache

	mu         sync.Mutex
	agents     map[int]*Agent
	sharedData *sync.Map
}

// New creates an AgentContext with a fresh session id and an empty root
// agent table; callers create the root Agent explicitly via CreateAgent.
func New(cfg Config, hooksDispatcher *hooks.Dispatcher) *AgentContext {
	return &AgentContext{
		SessionID: uuid.New().String()[:12],
		Config:    cfg,
		Hooks:     hooksDispatcher,
		ToolCache: executor.NewToolCache(),
		agents:    make(map[int]*Agent),
	}
}

// CreateAgent allocates a new Agent under the given id, parent, and
// optional system-prompt override, and registers it on the context.
func (c *AgentContext) CreateAgent(agentID int, parent *Agent, systemPromptOverride string) *Agent {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := &Agent{
		ID:                   agentID,
		Context:              c,
		Parent:               parent,
		SystemPromptOverride: systemPromptOverride,
		Data:                 make(map[string]any),
	}
	c.agents[agentID] = a
	return a
}

// GetAgent looks up an agent by id.
func (c *AgentContext) GetAgent(agentID int) *Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents[agentID]
}

// NextAgentID returns the next available integer agent id: one more than
// the current maximum key in the agent table (0 if empty).
func (c *AgentContext) NextAgentID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	max := -1
	for id := range c.agents {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// SharedData returns the context's cross-cutting scratch map (e.g.
// tool-specific subprocess pools, the shared memory index handle). Access
// is single-threaded in practice because the scheduler serializes per
// agent, but the map itself is still guarded for safety.
func (c *AgentContext) SharedData() *sync.Map {
	// A *sync.Map is created on first use and returned so callers get
	// atomic get/set semantics without a second mutex; every call returns
	// the same map.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sharedData == nil {
		c.sharedData = &sync.Map{}
	}
	return c.sharedData
}
