// Package schema compiles a tool's arg_schema into a jsonschema.Schema,
// used to sanity-check tool declarations at boot and to render per-field
// type descriptions. It is never on the lenient-parse hot path of the
// output parser, which keeps its own conservative coercion rules.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexuscore/monologue/internal/monologue/registry"
)

var jsonschemaTypeNames = map[registry.ArgType]string{
	registry.ArgString: "string",
	registry.ArgInt:    "integer",
	registry.ArgFloat:  "number",
	registry.ArgBool:   "boolean",
	registry.ArgObject: "object",
	registry.ArgArray:  "array",
	registry.ArgAny:    "",
}

// Compile builds a *jsonschema.Schema for one tool's declared arguments,
// using a draft-2020-12 object schema with one property per declared field.
func Compile(toolName string, fields map[string]registry.ArgSchema, required []string) (*jsonschema.Schema, error) {
	raw := map[string]any{
		"$id":        "tool://" + toolName,
		"type":       "object",
		"properties": propertiesFor(fields),
	}
	if len(required) > 0 {
		raw["required"] = required
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema for %s: %w", toolName, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool://"+toolName, strings.NewReader(string(encoded))); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", toolName, err)
	}
	return c.Compile("tool://" + toolName)
}

func propertiesFor(fields map[string]registry.ArgSchema) map[string]any {
	props := make(map[string]any, len(fields))
	for name, spec := range fields {
		types := make([]string, 0, len(spec.Types))
		for _, t := range spec.Types {
			if name := jsonschemaTypeNames[t]; name != "" {
				types = append(types, name)
			}
		}
		prop := map[string]any{}
		switch len(types) {
		case 0:
			// ArgAny or unrecognized: no type constraint.
		case 1:
			prop["type"] = types[0]
		default:
			prop["type"] = types
		}
		props[name] = prop
	}
	return props
}

// Describe renders a one-line human-readable type summary for a field, e.g.
// "text: string" or "count: integer|string", for use in tool descriptions.
func Describe(name string, spec registry.ArgSchema) string {
	names := make([]string, 0, len(spec.Types))
	for _, t := range spec.Types {
		if n := jsonschemaTypeNames[t]; n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return name + ": any"
	}
	return name + ": " + strings.Join(names, "|")
}
