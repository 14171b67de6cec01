// Package taskdone implements the terminal tool subordinate agents use to
// report their delegated task complete. It has the same shape as the
// response tool: the given text becomes the final message and the loop
// breaks.
package taskdone

import (
	"context"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Tool is the task-done terminal tool.
type Tool struct {
	registry.BaseTool
}

// New constructs the task_done tool.
func New() *Tool {
	return &Tool{BaseTool: registry.BaseTool{
		NameValue:        "task_done",
		DescriptionValue: "Report your delegated task complete and return the result to the parent agent.",
		Schema: map[string]registry.ArgSchema{
			"text": {Types: []registry.ArgType{registry.ArgString}},
		},
		Required:        []string{"text"},
		CacheableVal:    false,
		ParallelSafeVal: false,
	}}
}

// Execute returns the given text as the terminal message, ending the loop.
func (t *Tool) Execute(_ context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	text, _ := args["text"].(string)
	return monologuemodels.ToolResponse{Message: text, BreakLoop: true}, nil
}
