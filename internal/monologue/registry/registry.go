package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry is the thread-safe tool registry. Name collisions between an
// external source and a built-in are resolved by keeping the built-in and
// logging the collision; collisions among external sources are resolved by
// prefixing the later registration with its source name.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	sources map[string]string // tool name -> source ("" for built-in)
	logger  *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		sources: make(map[string]string),
		logger:  logger.With("component", "tool_registry"),
	}
}

// RegisterBuiltin adds a built-in tool. Built-ins always win name
// collisions against anything registered after them.
func (r *Registry) RegisterBuiltin(t Tool) {
	r.register(t, "")
}

// RegisterExternal adds a tool discovered from an external source (e.g. an
// MCP server), identified by sourceName for collision-prefixing purposes.
func (r *Registry) RegisterExternal(t Tool, sourceName string) {
	r.register(t, sourceName)
}

func (r *Registry) register(t Tool, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(t.Name())
	if existing, ok := r.tools[name]; ok {
		switch {
		case r.sources[name] == "" && source != "":
			// built-in already present; keep it, log the collision.
			r.logger.Warn("tool name collision, keeping built-in",
				"name", name, "external_source", source)
			return
		case r.sources[name] != "" && source != "":
			// two external sources collide; prefix the new one.
			prefixed := strings.ToLower(source) + ":" + name
			r.logger.Warn("external tool name collision, prefixing",
				"name", name, "source", source, "prefixed_as", prefixed)
			r.tools[prefixed] = t
			r.sources[prefixed] = source
			return
		default:
			// built-in re-registering over built-in (or external over
			// external with empty source): last write wins, same as a
			// simple overwrite, matching map semantics.
			_ = existing
		}
	}

	r.tools[name] = t
	r.sources[name] = source
}

// Get returns the tool registered under name, or nil if none exists.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[strings.ToLower(name)]
}

// Names returns every registered tool name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToolSchema is the subset of a Tool's schema the registry exposes.
type ToolSchema struct {
	ArgSchema    map[string]ArgSchema
	RequiredArgs []string
}

// Schemas returns every tool's argument schema, keyed by name.
func (r *Registry) Schemas() map[string]ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolSchema, len(r.tools))
	for n, t := range r.tools {
		out[n] = ToolSchema{ArgSchema: t.ArgSchema(), RequiredArgs: t.RequiredArgs()}
	}
	return out
}

// DescribeAll renders a markdown block describing every registered tool,
// sorted by name, for inclusion in the system prompt.
func (r *Registry) DescribeAll() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		t := r.tools[n]
		fmt.Fprintf(&b, "### %s\n%s\n", t.Name(), t.Description())

		argNames := make([]string, 0, len(t.ArgSchema()))
		for field := range t.ArgSchema() {
			argNames = append(argNames, field)
		}
		sort.Strings(argNames)
		for _, field := range argNames {
			fmt.Fprintf(&b, "- %s: %s\n", field, typeUnion(t.ArgSchema()[field].Types))
		}
		if len(t.RequiredArgs()) > 0 {
			fmt.Fprintf(&b, "Required args: %s\n", strings.Join(t.RequiredArgs(), ", "))
		}
	}
	return b.String()
}

func typeUnion(types []ArgType) string {
	if len(types) == 0 {
		return string(ArgAny)
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, "|")
}
