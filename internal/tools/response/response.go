// Package response implements the terminal response tool: the canonical
// way a root agent ends its monologue and delivers the final answer.
package response

import (
	"context"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Tool is the terminal response tool.
type Tool struct {
	registry.BaseTool
}

// New constructs the response tool.
func New() *Tool {
	return &Tool{BaseTool: registry.BaseTool{
		NameValue:        "response",
		DescriptionValue: "Deliver your final answer to the user and end this turn.",
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
