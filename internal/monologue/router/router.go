// Package router picks a backend model name for the next turn, from
// tool-affinity rules, content heuristics on the most recent user message,
// a route table, and an availability filter fed by the backend's model
// listing.
package router

import (
	"regexp"
	"strings"
	"sync"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Route names used as keys into the Routes table.
const (
	RouteCoding        = "coding"
	RouteSummarization = "summarization"
	RouteReasoning     = "reasoning"
	RouteDefault       = "default"
)

var (
	codeFenceRe      = regexp.MustCompile("```")
	codeKeywordRe    = regexp.MustCompile(`(?i)\b(func|function|class|def|package|import|SELECT|INSERT|UPDATE|DELETE|public\s+static|#include)\b`)
	codeExtRe        = regexp.MustCompile(`\.(go|py|js|ts|java|rb|rs|cpp|c|h|sql|json|yaml|yml)\b`)
	summaryKeywordRe = regexp.MustCompile(`(?i)\b(summarize|summary|tl;dr|condense|brief|overview|high-level|key points)\b`)
)

// Config is the router's static configuration: the route table, per-tool
// affinity table, the configured chat model, and whether routing is
// enabled at all.
type Config struct {
	Enabled      bool
	ChatModel    string
	Routes       map[string]string // route name -> model name
	ToolAffinity map[string]string // tool name -> route name
}

// Router selects a model name per turn.
type Router struct {
	cfg Config

	mu        sync.RWMutex
	available map[string]struct{}
}

// New creates a Router from its static config. Availability starts empty;
// SetAvailableModels must be called at least once (typically from the
// backend's list-models probe) before selection filters anything out — an
// empty availability set is treated as "unknown" and never filters.
func New(cfg Config) *Router {
	return &Router{cfg: cfg}
}

// SetAvailableModels replaces the last-observed model list used for
// availability filtering.
func (r *Router) SetAvailableModels(models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available = make(map[string]struct{}, len(models))
	for _, m := range models {
		r.available[m] = struct{}{}
	}
}

// SelectModel picks a model name for this turn given the message history
// and the last executed tool's name (empty if none yet).
func (r *Router) SelectModel(messages []monologuemodels.Message, lastToolName string) string {
	if !r.cfg.Enabled {
		return r.cfg.ChatModel
	}

	route := r.routeFromTool(lastToolName)
	if route == "" {
		route = r.routeFromMessages(messages)
	}

	model := r.modelForRoute(route)
	return r.resolveAvailability(model)
}

func (r *Router) routeFromTool(lastToolName string) string {
	if lastToolName == "" {
		return ""
	}
	if route, ok := r.cfg.ToolAffinity[lastToolName]; ok {
		return route
	}
	return ""
}

func (r *Router) routeFromMessages(messages []monologuemodels.Message) string {
	content := lastUserMessage(messages)
	if looksLikeCode(content) {
		return RouteCoding
	}
	if looksLikeSummary(content) {
		return RouteSummarization
	}
	return RouteReasoning
}

func lastUserMessage(messages []monologuemodels.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == monologuemodels.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func looksLikeCode(content string) bool {
	if codeFenceRe.MatchString(content) {
		return true
	}
	if codeKeywordRe.MatchString(content) {
		return true
	}
	return codeExtRe.MatchString(content)
}

func looksLikeSummary(content string) bool {
	return summaryKeywordRe.MatchString(content)
}

func (r *Router) modelForRoute(route string) string {
	if model, ok := r.cfg.Routes[route]; ok && model != "" {
		return model
	}
	if model, ok := r.cfg.Routes[RouteDefault]; ok && model != "" {
		return model
	}
	return r.cfg.ChatModel
}

// resolveAvailability falls back to default then chat model if the
// candidate is not in the last-observed model list. An exact name or a
// "name:<tag>" prefix match both count as available.
func (r *Router) resolveAvailability(model string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.available) == 0 || r.isAvailable(model) {
		return model
	}

	if def, ok := r.cfg.Routes[RouteDefault]; ok && def != "" && r.isAvailable(def) {
		return def
	}
	return r.cfg.ChatModel
}

func (r *Router) isAvailable(model string) bool {
	if _, ok := r.available[model]; ok {
		return true
	}
	for name := range r.available {
		if strings.HasPrefix(name, model+":") {
			return true
		}
	}
	return false
}
