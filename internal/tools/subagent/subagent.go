// Package subagent implements the subordinate-dispatch tool: it
// allocates the next integer agent id on the shared context, gives the new
// agent an empty history and an override system prompt, runs an
// independent monologue, and returns the subordinate's final text upward
// as the tool result.
package subagent

import (
	"context"
	"fmt"
	"strings"

	agentctx "github.com/nexuscore/monologue/internal/monologue/context"
	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// MonologueRunner runs one full monologue turn for an agent. The
// scheduler satisfies this; the indirection keeps this package from
// depending on the scheduler directly.
type MonologueRunner interface {
	Run(ctx context.Context, agentContext *agentctx.AgentContext, agent *agentctx.Agent, userMessage string) string
}

// Tool is the subordinate-dispatch facade.
type Tool struct {
	registry.BaseTool
	context *agentctx.AgentContext
	parent  *agentctx.Agent
	runner  MonologueRunner
}

// New constructs the subordinate-dispatch tool bound to the invoking
// agent's context.
func New(c *agentctx.AgentContext, parent *agentctx.Agent, runner MonologueRunner) *Tool {
	return &Tool{
		BaseTool: registry.BaseTool{
			NameValue:        "call_subordinate",
			DescriptionValue: "Delegate a task to a subordinate agent.",
			Schema: map[string]registry.ArgSchema{
				"task":          {Types: []registry.ArgType{registry.ArgString}},
				"system_prompt": {Types: []registry.ArgType{registry.ArgString}},
			},
			Required:        []string{"task"},
			CacheableVal:    false,
			ParallelSafeVal: false,
		},
		context: c,
		parent:  parent,
		runner:  runner,
	}
}

// Execute spawns the subordinate and blocks until its monologue ends.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (resp monologuemodels.ToolResponse, err error) {
	task, _ := args["task"].(string)
	systemPrompt, _ := args["system_prompt"].(string)

	if strings.TrimSpace(task) == "" {
		return monologuemodels.ToolResponse{Message: "[Error: No task provided for subordinate]"}, nil
	}

	nextID := t.context.NextAgentID()
	subordinate := t.context.CreateAgent(nextID, t.parent, systemPrompt)

	defer func() {
		if r := recover(); r != nil {
			resp = monologuemodels.ToolResponse{
				Message: fmt.Sprintf("[Subordinate Agent %d failed: %v]", nextID, r),
			}
			err = nil
		}
	}()

	result := t.runner.Run(ctx, t.context, subordinate, task)
	return monologuemodels.ToolResponse{
		Message: fmt.Sprintf("Subordinate Agent %d result:\n%s", nextID, result),
	}, nil
}
