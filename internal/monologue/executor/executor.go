// Package executor runs one or many tool calls with per-call timeouts,
// session-scoped caching, parallel-safety gating, and hook wrapping. A
// batch runs concurrently only when every call in it is parallel-safe;
// otherwise it runs strictly sequentially, and results always come back in
// input order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nexuscore/monologue/internal/monologue/hooks"
	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Config holds the executor's tunables.
type Config struct {
	DefaultTimeout time.Duration
	MaxConcurrency int
	CacheEnabled   bool
	// ToolTimeouts overrides DefaultTimeout for specific tool names; this is
	// consulted before the tool's own TimeoutSeconds().
	ToolTimeouts map[string]time.Duration
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 30 * time.Second,
		MaxConcurrency: 5,
	}
}

// Result is one (call, response) pair plus whether it was served from
// cache and how long the call took end to end.
type Result struct {
	Call      monologuemodels.ToolCall
	Response  monologuemodels.ToolResponse
	FromCache bool
	Duration  time.Duration
}

// Executor runs batches of ToolCalls against a Registry.
type Executor struct {
	reg    *registry.Registry
	hooks  *hooks.Dispatcher
	cache  *ToolCache
	cfg    Config
	sem    chan struct{}
	logger *slog.Logger
}

// New creates an Executor. hooksDispatcher and cache may be nil (hooks
// become no-ops; caching is disabled regardless of cfg.CacheEnabled).
func New(reg *registry.Registry, hooksDispatcher *hooks.Dispatcher, cache *ToolCache, cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		reg:    reg,
		hooks:  hooksDispatcher,
		cache:  cache,
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.MaxConcurrency),
		logger: logger.With("component", "tool_executor"),
	}
}

// ExecuteBatch runs calls and returns one Result per call, in input order,
// regardless of completion order. A single-call batch always runs
// sequentially. A multi-call batch runs concurrently only if every call
// reports IsParallelSafe(args) == true; otherwise it runs sequentially in
// input order.
func (e *Executor) ExecuteBatch(ctx context.Context, agentID int, calls []monologuemodels.ToolCall) []Result {
	results := make([]Result, len(calls))

	if len(calls) <= 1 || !e.allParallelSafe(calls) {
		for i, call := range calls {
			results[i] = e.executeOne(ctx, agentID, call)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		i, call := i, call
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.executeOne(ctx, agentID, call)
		}()
	}
	wg.Wait()
	return results
}

func (e *Executor) allParallelSafe(calls []monologuemodels.ToolCall) bool {
	for _, call := range calls {
		tool := e.reg.Get(call.Name)
		if tool == nil || !tool.IsParallelSafe(call.Args) {
			return false
		}
	}
	return true
}

func (e *Executor) executeOne(ctx context.Context, agentID int, call monologuemodels.ToolCall) Result {
	if e.hooks != nil {
		e.hooks.ToolExecuteBefore(ctx, agentID, call)
	}

	start := time.Now()
	resp, fromCache := e.runCall(ctx, call)
	elapsed := time.Since(start)

	if e.hooks != nil {
		e.hooks.ToolExecuteAfter(ctx, agentID, call, resp)
	}

	return Result{Call: call, Response: resp, FromCache: fromCache, Duration: elapsed}
}

func (e *Executor) runCall(ctx context.Context, call monologuemodels.ToolCall) (monologuemodels.ToolResponse, bool) {
	tool := e.reg.Get(call.Name)
	if tool == nil {
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("[Error: Unknown tool '%s'. Available tools: %s]", call.Name, joinNames(e.reg.Names())),
		}, false
	}

	var cacheKey string
	cacheable := e.cfg.CacheEnabled && e.cache != nil && tool.ShouldCache(call.Args)
	if cacheable {
		cacheKey = CacheKey(tool.Name(), call.Args)
		if cached, ok := e.cache.Get(cacheKey); ok {
			return cached, true
		}
	}

	// Acquire the concurrency semaphore for the before/execute/after
	// sequence itself (backpressure across the whole process, not just
	// within one batch).
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	resp := e.runWithTimeout(ctx, tool, call.Args)

	if cacheable {
		e.cache.Set(cacheKey, resp)
	}
	return resp, false
}

func (e *Executor) resolveTimeout(tool registry.Tool) time.Duration {
	if d, ok := e.cfg.ToolTimeouts[tool.Name()]; ok && d > 0 {
		return d
	}
	if tool.TimeoutSeconds() > 0 {
		return time.Duration(tool.TimeoutSeconds() * float64(time.Second))
	}
	return e.cfg.DefaultTimeout
}

// runWithTimeout invokes before/execute/after in strict order under a
// per-call timeout, recovering panics into bracketed error responses.
// Timeout expiry and other failures do not abort the loop; they become
// ordinary ToolResponses.
func (e *Executor) runWithTimeout(ctx context.Context, tool registry.Tool, args map[string]any) monologuemodels.ToolResponse {
	timeout := e.resolveTimeout(tool)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		resp monologuemodels.ToolResponse
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()

		if err := tool.Before(execCtx, args); err != nil {
			done <- outcome{err: err}
			return
		}
		resp, err := tool.Execute(execCtx, args)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		resp = tool.After(execCtx, resp)
		done <- outcome{resp: resp}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			e.logger.Warn("tool execution failed", "tool", tool.Name(), "error", out.err)
			return monologuemodels.ToolResponse{Message: fmt.Sprintf("[Tool '%s' error: %v]", tool.Name(), out.err)}
		}
		return out.resp
	case <-execCtx.Done():
		if ctx.Err() != nil {
			// Parent cancellation, not a timeout: still report as an
			// error response rather than blocking the loop indefinitely.
			return monologuemodels.ToolResponse{Message: fmt.Sprintf("[Tool '%s' error: %v]", tool.Name(), ctx.Err())}
		}
		seconds := timeout.Seconds()
		return monologuemodels.ToolResponse{Message: fmt.Sprintf("[Tool '%s' timed out after %.1fs]", tool.Name(), seconds)}
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
