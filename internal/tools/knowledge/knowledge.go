// Package knowledge implements the knowledge-import tool: it ingests
// text files from a directory into the same session-scoped index the
// memory tool searches, and reports status.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/internal/tools/memory"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// importableExtensions lists the file types the importer reads.
var importableExtensions = map[string]bool{
	".txt": true, ".md": true, ".rst": true, ".csv": true, ".json": true,
}

const maxImportBytes = 1 << 20 // per-file cap

// Tool is the knowledge-import facade.
type Tool struct {
	registry.BaseTool
	index *memory.Index
}

// New constructs the knowledge tool over the shared memory index.
func New(index *memory.Index) *Tool {
	return &Tool{
		BaseTool: registry.BaseTool{
			NameValue:        "knowledge",
			DescriptionValue: "Import documents into the knowledge base for search.",
			Schema: map[string]registry.ArgSchema{
				"action":    {Types: []registry.ArgType{registry.ArgString}},
				"directory": {Types: []registry.ArgType{registry.ArgString}},
				"namespace": {Types: []registry.ArgType{registry.ArgString}},
			},
			CacheableVal:    true,
			ParallelSafeVal: true,
		},
		index: index,
	}
}

// ShouldCache narrows caching to the status action; imports mutate the
// index and must never be served from cache.
func (t *Tool) ShouldCache(args map[string]any) bool {
	a, _ := args["action"].(string)
	return a == "status"
}

// IsParallelSafe mirrors ShouldCache.
func (t *Tool) IsParallelSafe(args map[string]any) bool {
	return t.ShouldCache(args)
}

// Execute dispatches on the action argument: import (default) or status.
func (t *Tool) Execute(_ context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	act, _ := args["action"].(string)
	if act == "" {
		act = "import"
	}
	namespace, _ := args["namespace"].(string)
	if namespace == "" {
		namespace = "knowledge"
	}

	if t.index == nil {
		return monologuemodels.ToolResponse{Message: "[Memory system not initialized]"}, nil
	}

	switch act {
	case "import":
		dir, _ := args["directory"].(string)
		if strings.TrimSpace(dir) == "" {
			return monologuemodels.ToolResponse{Message: "[Error: No directory provided to import]"}, nil
		}
		imported, skipped, errs := t.importDirectory(dir, namespace)
		var b strings.Builder
		b.WriteString("Knowledge import complete:")
		fmt.Fprintf(&b, "\n  Imported: %d files", imported)
		fmt.Fprintf(&b, "\n  Skipped: %d files", skipped)
		if len(errs) > 0 {
			fmt.Fprintf(&b, "\n  Errors: %d", len(errs))
			for i, e := range errs {
				if i == 5 {
					break
				}
				fmt.Fprintf(&b, "\n    - %s", e)
			}
		}
		return monologuemodels.ToolResponse{Message: b.String()}, nil

	case "status":
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("Knowledge base holds %d entries.", t.index.Len()),
		}, nil

	default:
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("[Error: Unknown knowledge action '%s'. Use: import or status]", act),
		}, nil
	}
}

func (t *Tool) importDirectory(dir, namespace string) (imported, skipped int, errs []string) {
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err.Error())
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !importableExtensions[strings.ToLower(filepath.Ext(path))] {
			skipped++
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, readErr))
			return nil
		}
		if len(data) > maxImportBytes {
			data = data[:maxImportBytes]
		}
		t.index.Save(string(data), filepath.Base(path), namespace)
		imported++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr.Error())
	}
	return imported, skipped, errs
}
