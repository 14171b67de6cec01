// Package hooks implements the lifecycle hook dispatcher (C4): a small,
// fixed set of named hook points fanned out to registered extensions in
// fixed registration order. Only before_llm_call has a meaningful return
// value; when multiple extensions return a non-nil override, the LAST
// non-nil return wins. Handler panics and errors are caught, logged, and
// never abort dispatch to the remaining extensions.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// Extension is the polymorphic hook-method contract, mirroring
// base_extension's on_<hook> methods. Every method has a no-op default via
// BaseExtension; implementations embed it and override only what they need.
type Extension interface {
	Name() string
	Enabled() bool

	OnMessageLoopStart(ctx context.Context, agentID int)
	OnMessageLoopPromptsBefore(ctx context.Context, agentID int)
	// OnBeforeLLMCall may return a replacement message list; a nil return
	// means "no override".
	OnBeforeLLMCall(ctx context.Context, agentID int, messages []monologuemodels.Message) []monologuemodels.Message
	OnAfterLLMCall(ctx context.Context, agentID int, fullResponse string)
	OnToolExecuteBefore(ctx context.Context, agentID int, call monologuemodels.ToolCall)
	OnToolExecuteAfter(ctx context.Context, agentID int, call monologuemodels.ToolCall, resp monologuemodels.ToolResponse)
	OnMonologueEnd(ctx context.Context, agentID int, finalMessage string)
}

// BaseExtension supplies no-op defaults for every hook method. Concrete
// extensions embed it and override only the hooks they care about.
type BaseExtension struct {
	NameValue string
	Disabled  bool
}

func (b BaseExtension) Name() string                                    { return b.NameValue }
func (b BaseExtension) Enabled() bool                                   { return !b.Disabled }
func (b BaseExtension) OnMessageLoopStart(context.Context, int)         {}
func (b BaseExtension) OnMessageLoopPromptsBefore(context.Context, int) {}
func (b BaseExtension) OnBeforeLLMCall(context.Context, int, []monologuemodels.Message) []monologuemodels.Message {
	return nil
}
func (b BaseExtension) OnAfterLLMCall(context.Context, int, string)                        {}
func (b BaseExtension) OnToolExecuteBefore(context.Context, int, monologuemodels.ToolCall) {}
func (b BaseExtension) OnToolExecuteAfter(context.Context, int, monologuemodels.ToolCall, monologuemodels.ToolResponse) {
}
func (b BaseExtension) OnMonologueEnd(context.Context, int, string) {}

// Dispatcher fans out hook calls to registered extensions in fixed
// registration order (never priority-sorted).
type Dispatcher struct {
	mu         sync.RWMutex
	extensions []Extension
	logger     *slog.Logger
}

// New creates an empty Dispatcher.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger.With("component", "hooks")}
}

// Register appends an extension. Order of registration is the order of
// dispatch; there is no priority mechanism.
func (d *Dispatcher) Register(ext Extension) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extensions = append(d.extensions, ext)
}

func (d *Dispatcher) enabled() []Extension {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Extension, 0, len(d.extensions))
	for _, e := range d.extensions {
		if e.Enabled() {
			out = append(out, e)
		}
	}
	return out
}

func (d *Dispatcher) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("hook handler panicked", "extension", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// MessageLoopStart dispatches message_loop_start to every extension in order.
func (d *Dispatcher) MessageLoopStart(ctx context.Context, agentID int) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnMessageLoopStart(ctx, agentID) })
	}
}

// MessageLoopPromptsBefore dispatches message_loop_prompts_before.
func (d *Dispatcher) MessageLoopPromptsBefore(ctx context.Context, agentID int) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnMessageLoopPromptsBefore(ctx, agentID) })
	}
}

// BeforeLLMCall dispatches before_llm_call to every extension in
// registration order, returning the LAST non-nil override seen. If no
// extension returns an override, the result is nil (meaning: use the
// messages as assembled).
func (d *Dispatcher) BeforeLLMCall(ctx context.Context, agentID int, messages []monologuemodels.Message) []monologuemodels.Message {
	var result []monologuemodels.Message
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return result
		}
		e := e
		d.safeCall(e.Name(), func() {
			if override := e.OnBeforeLLMCall(ctx, agentID, messages); override != nil {
				result = override
			}
		})
	}
	return result
}

// AfterLLMCall dispatches after_llm_call.
func (d *Dispatcher) AfterLLMCall(ctx context.Context, agentID int, fullResponse string) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnAfterLLMCall(ctx, agentID, fullResponse) })
	}
}

// ToolExecuteBefore dispatches tool_execute_before.
func (d *Dispatcher) ToolExecuteBefore(ctx context.Context, agentID int, call monologuemodels.ToolCall) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnToolExecuteBefore(ctx, agentID, call) })
	}
}

// ToolExecuteAfter dispatches tool_execute_after.
func (d *Dispatcher) ToolExecuteAfter(ctx context.Context, agentID int, call monologuemodels.ToolCall, resp monologuemodels.ToolResponse) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnToolExecuteAfter(ctx, agentID, call, resp) })
	}
}

// MonologueEnd dispatches monologue_end.
func (d *Dispatcher) MonologueEnd(ctx context.Context, agentID int, finalMessage string) {
	for _, e := range d.enabled() {
		if ctx.Err() != nil {
			return
		}
		e := e
		d.safeCall(e.Name(), func() { e.OnMonologueEnd(ctx, agentID, finalMessage) })
	}
}
