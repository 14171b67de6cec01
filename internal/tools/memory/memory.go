// Package memory implements the memory tool: save, search, delete, and
// forget over a session-scoped index. The dynamic refinements narrow
// caching and parallel safety to the read-only actions
// (search/query/recall); writes always run sequentially, uncached.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

const (
	defaultRecallCount     = 5
	defaultRecallThreshold = 0.2
)

// Tool is the memory facade.
type Tool struct {
	registry.BaseTool
	index    *Index
	recordOp func(op string)
}

// New constructs the memory tool over the given index. recordOp, when
// non-nil, receives the action name for telemetry (memory-op records are
// fire-and-forget per the telemetry contract).
func New(index *Index, recordOp func(op string)) *Tool {
	return &Tool{
		BaseTool: registry.BaseTool{
			NameValue:        "memory",
			DescriptionValue: "Search, save, or delete memories in the persistent memory store.",
			Schema: map[string]registry.ArgSchema{
				"action":    {Types: []registry.ArgType{registry.ArgString}},
				"text":      {Types: []registry.ArgType{registry.ArgString}},
				"area":      {Types: []registry.ArgType{registry.ArgString}},
				"namespace": {Types: []registry.ArgType{registry.ArgString}},
			},
			CacheableVal:    true,
			ParallelSafeVal: true,
		},
		index:    index,
		recordOp: recordOp,
	}
}

func action(args map[string]any) string {
	a, _ := args["action"].(string)
	if a == "" {
		return "search"
	}
	return a
}

func isReadAction(a string) bool {
	switch a {
	case "search", "query", "recall":
		return true
	}
	return false
}

// ShouldCache narrows caching to the read-only actions.
func (t *Tool) ShouldCache(args map[string]any) bool {
	return isReadAction(action(args))
}

// IsParallelSafe mirrors ShouldCache: only read-only actions may run
// concurrently with other calls.
func (t *Tool) IsParallelSafe(args map[string]any) bool {
	return t.ShouldCache(args)
}

// Execute dispatches on the action argument.
func (t *Tool) Execute(_ context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	act := action(args)
	text, _ := args["text"].(string)
	area, _ := args["area"].(string)
	if area == "" {
		area = "main"
	}
	namespace, _ := args["namespace"].(string)
	if namespace == "" {
		namespace = "default"
	}

	if t.recordOp != nil {
		t.recordOp(act)
	}
	if t.index == nil {
		return monologuemodels.ToolResponse{Message: "[Memory system not initialized]"}, nil
	}

	switch {
	case act == "save":
		if strings.TrimSpace(text) == "" {
			return monologuemodels.ToolResponse{Message: "[Error: No text provided to save]"}, nil
		}
		t.index.Save(text, area, namespace)
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("Saved to memory (namespace: %s, area: %s)", namespace, area),
		}, nil

	case isReadAction(act):
		if strings.TrimSpace(text) == "" {
			return monologuemodels.ToolResponse{Message: "[Error: No search query provided]"}, nil
		}
		searchArea := area
		if area == "all" {
			searchArea = ""
		}
		results := t.index.Search(text, searchArea, namespace, defaultRecallCount, defaultRecallThreshold)
		if len(results) == 0 {
			return monologuemodels.ToolResponse{Message: "No relevant memories found."}, nil
		}
		var b strings.Builder
		b.WriteString("Memories found:")
		for _, r := range results {
			fmt.Fprintf(&b, "\n- [%s/%s] (score: %.2f) %s", r.Entry.Namespace, r.Entry.Area, r.Score, r.Entry.Content)
		}
		return monologuemodels.ToolResponse{Message: b.String()}, nil

	case act == "delete" || act == "remove":
		if strings.TrimSpace(text) == "" {
			return monologuemodels.ToolResponse{Message: "[Error: No deletion query provided]"}, nil
		}
		deleteArea := area
		if area == "all" {
			deleteArea = ""
		}
		count := t.index.Delete(text, deleteArea, namespace)
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("Deleted %d memories in namespace '%s'.", count, namespace),
		}, nil

	case act == "forget":
		t.index.Forget(area, namespace)
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("Cleared all memories in namespace '%s', area: %s", namespace, area),
		}, nil

	default:
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("[Error: Unknown memory action '%s'. Use: save, search, delete, or forget]", act),
		}, nil
	}
}
