// Package parser extracts zero or more structured tool calls from
// free-form model text via four strategies tried in order: fenced code
// blocks, bare tool-name objects, brace-balanced bracket matching, and
// JSON repair. The first strategy to yield at least one valid call wins
// and its full list is returned without merging against later strategies.
package parser

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// toolNameKeys are the accepted aliases for the tool-name field, checked in
// this order when normalizing a decoded payload.
var toolNameKeys = []string{"tool_name", "tool", "name"}

// toolArgsKeys are the accepted aliases for the arguments field.
var toolArgsKeys = []string{"tool_args", "args", "arguments"}

// argAliasTable maps (toolName, aliasKey) -> canonicalKey, the fixed
// per-tool argument normalisation table. It never invents required
// arguments; it only renames common mistakes.
var argAliasTable = map[string]map[string]string{
	"response": {
		"message": "text",
		"content": "text",
		"answer":  "text",
	},
	"task_done": {
		"message": "text",
		"content": "text",
		"answer":  "text",
	},
	"exec": {
		"script":  "code",
		"command": "code",
	},
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// FailureRecord captures one parse attempt that produced zero valid calls,
// for later diagnosis. The monologue never treats this as fatal.
type FailureRecord struct {
	RawText        string
	StrategyErrors map[string]string
}

// Parser extracts ToolCalls from raw assistant text against a registry of
// known tools and their schemas.
type Parser struct {
	registry  *registry.Registry
	logger    *slog.Logger
	onFailure func(FailureRecord)
}

// New creates a Parser bound to a tool registry used for name resolution
// and argument-schema coercion.
func New(reg *registry.Registry, logger *slog.Logger, onFailure func(FailureRecord)) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{registry: reg, logger: logger.With("component", "output_parser"), onFailure: onFailure}
}

// Parse returns the ordered list of valid ToolCalls found in text, trying
// each strategy in order and returning the first non-empty result. An
// empty return means no actionable tool call was found; Parse never
// panics or returns an error for malformed input — it only records a
// FailureRecord via onFailure when every strategy yields nothing.
func (p *Parser) Parse(text string) []monologuemodels.ToolCall {
	strategies := []struct {
		name string
		fn   func(string) []monologuemodels.ToolCall
	}{
		{"code_fence", p.extractFromCodeFence},
		{"raw_json", p.extractFromRawJSON},
		{"bracket_match", p.extractWithBracketMatching},
		{"repair", p.extractWithRepair},
	}

	errs := make(map[string]string)
	for _, s := range strategies {
		calls := s.fn(text)
		if len(calls) > 0 {
			return calls
		}
		errs[s.name] = "no valid tool call found"
	}

	if p.onFailure != nil {
		p.onFailure(FailureRecord{RawText: text, StrategyErrors: errs})
	}
	p.logger.Debug("no tool call parsed", "text_len", len(text))
	return nil
}

func (p *Parser) extractFromCodeFence(text string) []monologuemodels.ToolCall {
	var out []monologuemodels.ToolCall
	for _, m := range codeFenceRe.FindAllStringSubmatch(text, -1) {
		calls := p.parsePayload(m[1])
		out = append(out, calls...)
	}
	return out
}

func (p *Parser) extractFromRawJSON(text string) []monologuemodels.ToolCall {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if !containsAnyKey(trimmed, toolNameKeys) {
		return nil
	}
	return p.parsePayload(trimmed)
}

func containsAnyKey(text string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(text, `"`+k+`"`) || strings.Contains(text, `'`+k+`'`) {
			return true
		}
	}
	return false
}

// extractWithBracketMatching scans text for balanced {...} spans,
// respecting string literals and escapes, and keeps spans that mention a
// tool-name key.
func (p *Parser) extractWithBracketMatching(text string) []monologuemodels.ToolCall {
	var out []monologuemodels.ToolCall
	for _, span := range findJSONObjects(text) {
		if !containsAnyKey(span, toolNameKeys) {
			continue
		}
		out = append(out, p.parsePayload(span)...)
	}
	return out
}

// extractWithRepair applies extractWithBracketMatching's spans through a
// fixed repair pipeline before parsing: strip trailing commas, rewrite
// single-quoted strings to double-quoted (only when it does not cross an
// embedded double quote), then canonicalize alias keys (handled generically
// by parsePayload's normalisation already).
func (p *Parser) extractWithRepair(text string) []monologuemodels.ToolCall {
	var out []monologuemodels.ToolCall
	for _, span := range findJSONObjects(text) {
		if !containsAnyKey(span, toolNameKeys) {
			continue
		}
		repaired := repairJSON(span)
		out = append(out, p.parsePayload(repaired)...)
	}
	return out
}

// findJSONObjects finds all balanced, string/escape-aware {...} spans in
// text (non-nested results: only top-level balanced spans are returned,
// scanning continues after each closing brace).
func findJSONObjects(text string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON strips trailing commas and rewrites single-quoted strings to
// double-quoted, in that order, as a fixed pipeline.
func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return singleToDoubleQuotes(s)
}

// singleToDoubleQuotes rewrites 'text' style quoting to "text" style,
// tracking whether we're inside a single-quoted span and leaving any
// already-double-quoted spans untouched. It refuses to rewrite a span that
// contains an embedded double quote, per the fixed repair rule.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	inDouble := false
	inSingle := false
	singleStart := 0
	runes := []rune(s)

	flushAsIs := func(from, to int) {
		b.WriteString(string(runes[from:to]))
	}

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case inSingle:
			if r == '\\' && i+1 < len(runes) {
				i += 2
				continue
			}
			if r == '\'' {
				span := string(runes[singleStart+1 : i])
				if strings.Contains(span, `"`) {
					flushAsIs(singleStart, i+1)
				} else {
					b.WriteString(`"` + span + `"`)
				}
				inSingle = false
			}
			i++
		case inDouble:
			b.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
				i++
				continue
			}
			if r == '"' {
				inDouble = false
			}
			i++
		case r == '"':
			inDouble = true
			b.WriteRune(r)
			i++
		case r == '\'':
			inSingle = true
			singleStart = i
			i++
		default:
			b.WriteRune(r)
			i++
		}
	}
	if inSingle {
		// Unterminated single-quote span: emit the remainder verbatim.
		b.WriteString(string(runes[singleStart:]))
	}
	return b.String()
}

// parsePayload decodes a JSON payload (object or array of objects) into
// validated ToolCalls, applying key-alias normalisation, tool-name
// resolution, and per-argument coercion. Invalid individual calls are
// skipped without rejecting their valid siblings.
func (p *Parser) parsePayload(payload string) []monologuemodels.ToolCall {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &raw); err != nil {
		return nil
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil
	}

	var out []monologuemodels.ToolCall
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		call, ok := p.validateToolCall(obj)
		if ok {
			out = append(out, call)
		}
	}
	return out
}

func (p *Parser) validateToolCall(obj map[string]any) (monologuemodels.ToolCall, bool) {
	rawName, ok := firstPresent(obj, toolNameKeys)
	if !ok {
		return monologuemodels.ToolCall{}, false
	}
	nameStr, ok := rawName.(string)
	if !ok {
		return monologuemodels.ToolCall{}, false
	}

	canonical := p.resolveName(nameStr)
	if canonical == "" {
		return monologuemodels.ToolCall{}, false
	}

	var argsMap map[string]any
	if rawArgs, ok := firstPresent(obj, toolArgsKeys); ok {
		if m, ok := rawArgs.(map[string]any); ok {
			argsMap = m
		}
	}
	if argsMap == nil {
		argsMap = map[string]any{}
	}
	argsMap = normalizeArgAliases(canonical, argsMap)

	tool := p.registry.Get(canonical)
	if tool == nil {
		// Unknown to the registry: still return a best-effort call with the
		// lowercased name; the executor reports "tool not found" downstream. The
		// parser's job is extraction, not existence-checking beyond casing.
		return monologuemodels.ToolCall{Name: canonical, Args: argsMap}, true
	}

	coerced, ok := coerceArgs(tool, argsMap)
	if !ok {
		return monologuemodels.ToolCall{}, false
	}

	return monologuemodels.ToolCall{Name: canonical, Args: coerced}, true
}

func (p *Parser) resolveName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return ""
	}
	if t := p.registry.Get(lower); t != nil {
		return t.Name()
	}
	// Unknown tool: keep the lowercased name as the canonical form so the
	// executor can produce the standard "tool not found" response.
	return lower
}

func firstPresent(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func normalizeArgAliases(toolName string, args map[string]any) map[string]any {
	aliases, ok := argAliasTable[toolName]
	if !ok {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if canonical, ok := aliases[k]; ok {
			if _, exists := args[canonical]; !exists {
				out[canonical] = v
				continue
			}
		}
		out[k] = v
	}
	return out
}

// coerceArgs applies conservative type coercion per the tool's arg_schema:
// non-string to string when string is expected; string to int/float when
// numeric is expected and the string parses. Missing required args or
// values whose type remains outside the accepted set after coercion cause
// rejection of the whole call (not the whole batch).
func coerceArgs(tool registry.Tool, args map[string]any) (map[string]any, bool) {
	for _, req := range tool.RequiredArgs() {
		if _, ok := args[req]; !ok {
			return nil, false
		}
	}

	schema := tool.ArgSchema()
	out := make(map[string]any, len(args))
	for k, v := range args {
		spec, declared := schema[k]
		if !declared {
			out[k] = v
			continue
		}
		coerced, ok := coerceValue(v, spec.Types)
		if !ok {
			return nil, false
		}
		out[k] = coerced
	}
	return out, true
}

func coerceValue(v any, accepted []registry.ArgType) (any, bool) {
	if len(accepted) == 0 || containsType(accepted, registry.ArgAny) {
		return v, true
	}
	if matchesType(v, accepted) {
		return v, true
	}

	for _, t := range accepted {
		switch t {
		case registry.ArgString:
			switch vv := v.(type) {
			case float64:
				return strconv.FormatFloat(vv, 'f', -1, 64), true
			case bool:
				return strconv.FormatBool(vv), true
			}
		case registry.ArgInt:
			if s, ok := v.(string); ok {
				if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
					return float64(n), true
				}
			}
		case registry.ArgFloat:
			if s, ok := v.(string); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					return f, true
				}
			}
		}
	}
	return nil, false
}

func containsType(types []registry.ArgType, t registry.ArgType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func matchesType(v any, accepted []registry.ArgType) bool {
	for _, t := range accepted {
		switch t {
		case registry.ArgString:
			if _, ok := v.(string); ok {
				return true
			}
		case registry.ArgInt, registry.ArgFloat:
			if _, ok := v.(float64); ok {
				return true
			}
		case registry.ArgBool:
			if _, ok := v.(bool); ok {
				return true
			}
		case registry.ArgObject:
			if _, ok := v.(map[string]any); ok {
				return true
			}
		case registry.ArgArray:
			if _, ok := v.([]any); ok {
				return true
			}
		}
	}
	return false
}
