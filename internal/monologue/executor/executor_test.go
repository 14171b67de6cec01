package executor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

type sleepTool struct {
	registry.BaseTool
	sleep time.Duration
}

func (t *sleepTool) Execute(ctx context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	select {
	case <-time.After(t.sleep):
	case <-ctx.Done():
	}
	label, _ := args["label"].(string)
	return monologuemodels.ToolResponse{Message: "slept:" + label}, nil
}

type countingTool struct {
	registry.BaseTool
	executions *atomic.Int64
}

func (t *countingTool) Execute(context.Context, map[string]any) (monologuemodels.ToolResponse, error) {
	n := t.executions.Add(1)
	return monologuemodels.ToolResponse{Message: "count:" + strconv.FormatInt(n, 10)}, nil
}

type orderedTool struct {
	registry.BaseTool
	trace *[]string
}

func (t *orderedTool) Before(context.Context, map[string]any) error {
	*t.trace = append(*t.trace, "before")
	return nil
}

func (t *orderedTool) Execute(context.Context, map[string]any) (monologuemodels.ToolResponse, error) {
	*t.trace = append(*t.trace, "execute")
	return monologuemodels.ToolResponse{Message: "done"}, nil
}

func (t *orderedTool) After(_ context.Context, resp monologuemodels.ToolResponse) monologuemodels.ToolResponse {
	*t.trace = append(*t.trace, "after")
	return resp
}

type failingBeforeTool struct {
	registry.BaseTool
	executed *bool
}

func (t *failingBeforeTool) Before(context.Context, map[string]any) error {
	return errors.New("precondition failed")
}

func (t *failingBeforeTool) Execute(context.Context, map[string]any) (monologuemodels.ToolResponse, error) {
	*t.executed = true
	return monologuemodels.ToolResponse{Message: "should not run"}, nil
}

func newExecutor(t *testing.T, tools []registry.Tool, cfg Config) (*Executor, *ToolCache) {
	t.Helper()
	reg := registry.New(nil)
	for _, tool := range tools {
		reg.RegisterBuiltin(tool)
	}
	cache := NewToolCache()
	return New(reg, nil, cache, cfg, nil), cache
}

func TestExecuteBatch_ParallelSafeRunsConcurrently(t *testing.T) {
	// S3: two parallel-safe 100ms calls complete in well under 200ms,
	// and result order matches input order.
	tool := &sleepTool{
		BaseTool: registry.BaseTool{NameValue: "search", ParallelSafeVal: true},
		sleep:    100 * time.Millisecond,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig())

	calls := []monologuemodels.ToolCall{
		{Name: "search", Args: map[string]any{"label": "a"}},
		{Name: "search", Args: map[string]any{"label": "b"}},
	}

	start := time.Now()
	results := exec.ExecuteBatch(context.Background(), 0, calls)
	elapsed := time.Since(start)

	if elapsed > 180*time.Millisecond {
		t.Errorf("parallel batch took %v, want < 180ms", elapsed)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Response.Message != "slept:a" || results[1].Response.Message != "slept:b" {
		t.Errorf("result order does not match input order: %+v", results)
	}
}

func TestExecuteBatch_UnsafeBatchRunsSequentially(t *testing.T) {
	safe := &sleepTool{
		BaseTool: registry.BaseTool{NameValue: "safe", ParallelSafeVal: true},
		sleep:    60 * time.Millisecond,
	}
	unsafe := &sleepTool{
		BaseTool: registry.BaseTool{NameValue: "unsafe", ParallelSafeVal: false},
		sleep:    60 * time.Millisecond,
	}
	exec, _ := newExecutor(t, []registry.Tool{safe, unsafe}, DefaultConfig())

	calls := []monologuemodels.ToolCall{
		{Name: "safe", Args: map[string]any{"label": "a"}},
		{Name: "unsafe", Args: map[string]any{"label": "b"}},
	}

	start := time.Now()
	results := exec.ExecuteBatch(context.Background(), 0, calls)
	elapsed := time.Since(start)

	if elapsed < 120*time.Millisecond {
		t.Errorf("mixed batch took %v, want >= 120ms (sequential)", elapsed)
	}
	if results[0].Response.Message != "slept:a" || results[1].Response.Message != "slept:b" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestExecuteBatch_Timeout(t *testing.T) {
	// S4: a 10ms timeout against a 50ms sleep yields the timeout message
	// with the resolved timeout rendered, break_loop false.
	tool := &sleepTool{
		BaseTool: registry.BaseTool{NameValue: "sleep", TimeoutSecondsVal: 0.01},
		sleep:    50 * time.Millisecond,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig())

	results := exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{
		{Name: "sleep", Args: map[string]any{}},
	})

	if got := results[0].Response.Message; got != "[Tool 'sleep' timed out after 0.0s]" {
		t.Errorf("message = %q", got)
	}
	if results[0].Response.BreakLoop {
		t.Error("timeout must not break the loop")
	}
}

func TestExecuteBatch_CacheHit(t *testing.T) {
	// S5: the second identical call is served from cache; the tool
	// executes exactly once.
	var executions atomic.Int64
	tool := &countingTool{
		BaseTool:   registry.BaseTool{NameValue: "counter", CacheableVal: true},
		executions: &executions,
	}
	cfg := DefaultConfig()
	cfg.CacheEnabled = true
	exec, _ := newExecutor(t, []registry.Tool{tool}, cfg)

	call := monologuemodels.ToolCall{Name: "counter", Args: map[string]any{"x": float64(1)}}

	first := exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{call})
	second := exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{call})

	if executions.Load() != 1 {
		t.Errorf("executions = %d, want 1", executions.Load())
	}
	if first[0].FromCache {
		t.Error("first call must not be from cache")
	}
	if !second[0].FromCache {
		t.Error("second call must be from cache")
	}
	if first[0].Response.Message != second[0].Response.Message {
		t.Errorf("cached message differs: %q vs %q", first[0].Response.Message, second[0].Response.Message)
	}
}

func TestExecuteBatch_CacheDisabledNeverCaches(t *testing.T) {
	var executions atomic.Int64
	tool := &countingTool{
		BaseTool:   registry.BaseTool{NameValue: "counter", CacheableVal: true},
		executions: &executions,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig()) // CacheEnabled false

	call := monologuemodels.ToolCall{Name: "counter", Args: map[string]any{"x": float64(1)}}
	exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{call})
	exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{call})

	if executions.Load() != 2 {
		t.Errorf("executions = %d, want 2", executions.Load())
	}
}

func TestExecuteBatch_UnknownTool(t *testing.T) {
	exec, _ := newExecutor(t, nil, DefaultConfig())

	results := exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{
		{Name: "ghost", Args: map[string]any{}},
	})

	if !strings.HasPrefix(results[0].Response.Message, "[Error: Unknown tool 'ghost'. Available tools:") {
		t.Errorf("message = %q", results[0].Response.Message)
	}
}

func TestExecuteBatch_BeforeExecuteAfterOrder(t *testing.T) {
	var trace []string
	tool := &orderedTool{
		BaseTool: registry.BaseTool{NameValue: "ordered"},
		trace:    &trace,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig())

	exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{
		{Name: "ordered", Args: map[string]any{}},
	})

	want := []string{"before", "execute", "after"}
	if len(trace) != 3 || trace[0] != want[0] || trace[1] != want[1] || trace[2] != want[2] {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestExecuteBatch_BeforeFailureShortCircuits(t *testing.T) {
	executed := false
	tool := &failingBeforeTool{
		BaseTool: registry.BaseTool{NameValue: "guarded"},
		executed: &executed,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig())

	results := exec.ExecuteBatch(context.Background(), 0, []monologuemodels.ToolCall{
		{Name: "guarded", Args: map[string]any{}},
	})

	if executed {
		t.Error("execute must not run after before fails")
	}
	if !strings.HasPrefix(results[0].Response.Message, "[Tool 'guarded' error:") {
		t.Errorf("message = %q", results[0].Response.Message)
	}
}

func TestExecuteBatch_ResultLengthMatchesInput(t *testing.T) {
	tool := &sleepTool{
		BaseTool: registry.BaseTool{NameValue: "t", ParallelSafeVal: true},
		sleep:    time.Millisecond,
	}
	exec, _ := newExecutor(t, []registry.Tool{tool}, DefaultConfig())

	calls := make([]monologuemodels.ToolCall, 7)
	for i := range calls {
		calls[i] = monologuemodels.ToolCall{Name: "t", Args: map[string]any{"label": string(rune('a' + i))}}
	}
	results := exec.ExecuteBatch(context.Background(), 0, calls)

	if len(results) != len(calls) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(calls))
	}
	for i := range results {
		if results[i].Call.Args["label"] != calls[i].Args["label"] {
			t.Errorf("result %d does not correspond to call %d", i, i)
		}
	}
}
