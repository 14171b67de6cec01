// Package exec implements the code-execution tool: code runs in
// persistent interpreter sessions (python, shell, node) that live for the
// whole conversation, so state set in one call is visible to the next and
// to subordinate agents sharing the context.
package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// SessionPool holds one PersistentSession per runtime. The exec tool is
// built over a single pool, so every agent in the subordinate tree that
// calls that tool reuses the same interpreter processes.
type SessionPool struct {
	mu       sync.Mutex
	sessions map[string]*PersistentSession
}

// NewSessionPool creates an empty pool.
func NewSessionPool() *SessionPool {
	return &SessionPool{sessions: make(map[string]*PersistentSession)}
}

func (p *SessionPool) get(runtime string) (*PersistentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[runtime]; ok {
		return s, nil
	}
	s, err := NewPersistentSession(runtime)
	if err != nil {
		return nil, err
	}
	p.sessions[runtime] = s
	return s, nil
}

// Close terminates every session in the pool.
func (p *SessionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		s.Close()
	}
	p.sessions = make(map[string]*PersistentSession)
}

// Tool is the code-execution facade.
type Tool struct {
	registry.BaseTool
	pool *SessionPool
}

// New constructs the exec tool over a session pool.
func New(pool *SessionPool) *Tool {
	return &Tool{
		BaseTool: registry.BaseTool{
			NameValue:        "exec",
			DescriptionValue: "Execute code in a persistent terminal session. Runtimes: python, shell, node.",
			Schema: map[string]registry.ArgSchema{
				"runtime": {Types: []registry.ArgType{registry.ArgString}},
				"code":    {Types: []registry.ArgType{registry.ArgString}},
			},
			Required:          []string{"code"},
			TimeoutSecondsVal: 60,
			CacheableVal:      false,
			ParallelSafeVal:   false,
		},
		pool: pool,
	}
}

// Execute runs code in the named runtime's persistent session.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	runtime, _ := args["runtime"].(string)
	if runtime == "" {
		runtime = "python"
	}
	code, _ := args["code"].(string)

	if strings.TrimSpace(code) == "" {
		return monologuemodels.ToolResponse{Message: "[Error: No code provided]"}, nil
	}
	if _, ok := runtimeCommands[runtime]; !ok {
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("[Error: Unknown runtime '%s'. Use: python, shell, or node]", runtime),
		}, nil
	}

	session, err := t.pool.get(runtime)
	if err != nil {
		return monologuemodels.ToolResponse{}, err
	}

	output, err := session.Run(ctx, code)
	if err != nil {
		return monologuemodels.ToolResponse{Message: fmt.Sprintf("[Execution error: %v]", err)}, nil
	}
	return monologuemodels.ToolResponse{Message: output}, nil
}
