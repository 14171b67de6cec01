// Package registry implements the tool registry (C2): enumeration of tools,
// their schemas, and the collision rules between built-in and
// externally-sourced tools.
package registry

import (
	"context"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// ArgType is the set of scalar JSON value shapes a Tool's arg_schema may
// declare for a field. A field may accept a union of these.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgBool   ArgType = "bool"
	ArgObject ArgType = "object"
	ArgArray  ArgType = "array"
	ArgAny    ArgType = "any"
)

// ArgSchema describes one declared argument field: the set of accepted
// types (a union). Whether a field is required is not recorded here;
// required fields are listed, in order, by Tool.RequiredArgs so that
// rejection order is deterministic.
type ArgSchema struct {
	Types []ArgType
}

// Tool is the capability set every tool variant implements. A tool
// declares its schema and static policies and may refine caching and
// parallel safety per call via the dynamic methods.
type Tool interface {
	Name() string
	Description() string
	ArgSchema() map[string]ArgSchema
	RequiredArgs() []string
	// TimeoutSeconds returns an explicit per-tool timeout override, or 0 if
	// the executor's default should apply.
	TimeoutSeconds() float64
	Cacheable() bool
	ParallelSafe() bool

	Before(ctx context.Context, args map[string]any) error
	Execute(ctx context.Context, args map[string]any) (monologuemodels.ToolResponse, error)
	After(ctx context.Context, resp monologuemodels.ToolResponse) monologuemodels.ToolResponse

	// ShouldCache and IsParallelSafe are dynamic refinements: they receive
	// the call's concrete arguments and may narrow (never widen) the static
	// Cacheable/ParallelSafe flags. Most tools simply return the static flag.
	ShouldCache(args map[string]any) bool
	IsParallelSafe(args map[string]any) bool
}

// BaseTool supplies the common no-op/default behavior most Tool variants
// share: before and after are identity operations, and the dynamic
// refinements default to the static flags.
type BaseTool struct {
	NameValue         string
	DescriptionValue  string
	Schema            map[string]ArgSchema
	Required          []string
	TimeoutSecondsVal float64
	CacheableVal      bool
	ParallelSafeVal   bool
}

func (b BaseTool) Name() string                                 { return b.NameValue }
func (b BaseTool) Description() string                          { return b.DescriptionValue }
func (b BaseTool) ArgSchema() map[string]ArgSchema              { return b.Schema }
func (b BaseTool) RequiredArgs() []string                       { return b.Required }
func (b BaseTool) TimeoutSeconds() float64                      { return b.TimeoutSecondsVal }
func (b BaseTool) Cacheable() bool                              { return b.CacheableVal }
func (b BaseTool) ParallelSafe() bool                           { return b.ParallelSafeVal }
func (b BaseTool) Before(context.Context, map[string]any) error { return nil }
func (b BaseTool) After(_ context.Context, resp monologuemodels.ToolResponse) monologuemodels.ToolResponse {
	return resp
}
func (b BaseTool) ShouldCache(map[string]any) bool    { return b.CacheableVal }
func (b BaseTool) IsParallelSafe(map[string]any) bool { return b.ParallelSafeVal }
