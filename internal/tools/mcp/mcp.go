// Package mcp adapts externally-discovered tools to the registry's Tool
// contract. Discovery happens once at startup; name collisions with
// built-ins keep the built-in, and collisions among external sources are
// resolved by the registry via source-name prefixing.
package mcp

import (
	"context"
	"fmt"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Descriptor is the wire-level description of one external tool.
type Descriptor struct {
	Name         string
	Description  string
	ArgSchema    map[string]registry.ArgSchema
	RequiredArgs []string
	// ParallelSafe is declared by the source; external tools are never
	// cached because the core cannot see their side effects.
	ParallelSafe bool
}

// InvokeFunc performs one call against the external source.
type InvokeFunc func(ctx context.Context, name string, args map[string]any) (string, error)

// Source is a provider of external tools, discovered once at startup.
type Source interface {
	Name() string
	ListTools(ctx context.Context) ([]Descriptor, error)
	Invoke(ctx context.Context, toolName string, args map[string]any) (string, error)
}

// ExternalTool wraps one Descriptor as a registry.Tool. The invoke closure
// carries the session-name qualifier so calls reach the right source.
type ExternalTool struct {
	registry.BaseTool
	source string
	invoke InvokeFunc
}

// NewExternalTool builds a registry.Tool from a Descriptor and its source.
func NewExternalTool(sourceName string, d Descriptor, invoke InvokeFunc) *ExternalTool {
	return &ExternalTool{
		BaseTool: registry.BaseTool{
			NameValue:        d.Name,
			DescriptionValue: d.Description,
			Schema:           d.ArgSchema,
			Required:         d.RequiredArgs,
			CacheableVal:     false,
			ParallelSafeVal:  d.ParallelSafe,
		},
		source: sourceName,
		invoke: invoke,
	}
}

// SourceName returns the name of the source this tool came from.
func (t *ExternalTool) SourceName() string { return t.source }

// Execute forwards the call to the external source.
func (t *ExternalTool) Execute(ctx context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	out, err := t.invoke(ctx, t.Name(), args)
	if err != nil {
		return monologuemodels.ToolResponse{}, fmt.Errorf("external tool %s: %w", t.Name(), err)
	}
	return monologuemodels.ToolResponse{Message: out}, nil
}

// RegisterAll discovers every tool each source offers and registers them
// on the given registry. Discovery errors skip the failing source; tools
// already registered elsewhere follow the registry's collision rules.
func RegisterAll(ctx context.Context, reg *registry.Registry, sources []Source) error {
	var firstErr error
	for _, src := range sources {
		descriptors, err := src.ListTools(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("list tools from %s: %w", src.Name(), err)
			}
			continue
		}
		for _, d := range descriptors {
			reg.RegisterExternal(NewExternalTool(src.Name(), d, src.Invoke), src.Name())
		}
	}
	return firstErr
}
