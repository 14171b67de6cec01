// Package scheduler implements the monologue loop: assemble the prompt,
// stream the model's output, parse tool calls, execute them, fold the
// results back into history, and decide to continue or terminate. One
// user message drives one monologue, bounded by the iteration cap.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	agentctx "github.com/nexuscore/monologue/internal/monologue/context"
	"github.com/nexuscore/monologue/internal/monologue/errkind"
	"github.com/nexuscore/monologue/internal/monologue/executor"
	"github.com/nexuscore/monologue/internal/monologue/llm"
	"github.com/nexuscore/monologue/internal/monologue/parser"
	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/internal/monologue/router"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// reminderThreshold is the number of consecutive tool-less iterations
// before a reminder system message is appended.
const reminderThreshold = 5

// fallbackMessage is returned verbatim when the iteration cap is reached.
const fallbackMessage = "I was unable to complete this within the allotted iterations."

// defaultTerminalTool names the tool whose example is shown in the
// reminder message for root agents; subordinates use task_done instead.
const defaultTerminalTool = "response"
const subordinateTerminalTool = "task_done"

// Scheduler drives one Agent's monologue loop.
type Scheduler struct {
	Registry *registry.Registry
	Parser   *parser.Parser
	Router   *router.Router
	Executor *executor.Executor
	LLM      llm.Provider
	Template PromptTemplate
	Logger   *slog.Logger
}

// New constructs a Scheduler from its collaborators. Template may be nil
// (always falls back to the minimal prompt string).
func New(reg *registry.Registry, p *parser.Parser, r *router.Router, ex *executor.Executor, backend llm.Provider, tmpl PromptTemplate, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{Registry: reg, Parser: p, Router: r, Executor: ex, LLM: backend, Template: tmpl, Logger: logger.With("component", "monologue_scheduler")}
}

// Run executes one full monologue turn for agent, starting from
// userMessage, and returns the final text delivered by whichever terminal
// tool (or iteration-cap fallback) ended it.
func (s *Scheduler) Run(ctx context.Context, agentContext *agentctx.AgentContext, agent *agentctx.Agent, userMessage string) string {
	hooksDispatcher := agentContext.Hooks

	if hooksDispatcher != nil {
		hooksDispatcher.MessageLoopStart(ctx, agent.ID)
	}

	agent.History.Append(monologuemodels.RoleUser, userMessage)
	s.persist(agentContext, agent.ID, monologuemodels.Message{Role: monologuemodels.RoleUser, Content: userMessage})

	noToolCount := 0
	maxIterations := agentContext.Config.MaxMonologueIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if agentContext.TelemetryHandle != nil {
			agentContext.TelemetryHandle.RecordIteration(agentContext.SessionID, agent.ID, iteration)
		}

		if hooksDispatcher != nil {
			hooksDispatcher.MessageLoopPromptsBefore(ctx, agent.ID)
		}

		systemPrompt := buildSystemPrompt(agent, s.Registry, s.Template)
		messages := s.composeMessages(systemPrompt, agent)

		if hooksDispatcher != nil {
			if override := hooksDispatcher.BeforeLLMCall(ctx, agent.ID, messages); override != nil {
				messages = override
			}
		}

		model := s.Router.SelectModel(messages, agent.GetLastToolName())

		llmStart := time.Now()
		fullResponse, streamErr := s.stream(ctx, agentContext, agent, model, messages)
		if streamErr != nil {
			return s.terminateOnBackendError(ctx, agentContext, agent, streamErr)
		}
		if agentContext.TelemetryHandle != nil {
			agentContext.TelemetryHandle.RecordLLMCall(agentContext.SessionID, model, time.Since(llmStart).Milliseconds(), nil)
		}

		if hooksDispatcher != nil {
			hooksDispatcher.AfterLLMCall(ctx, agent.ID, fullResponse)
		}

		agent.History.Append(monologuemodels.RoleAssistant, fullResponse)
		s.persist(agentContext, agent.ID, monologuemodels.Message{Role: monologuemodels.RoleAssistant, Content: fullResponse})

		calls := s.Parser.Parse(fullResponse)
		if len(calls) == 0 {
			noToolCount++
			if noToolCount >= reminderThreshold {
				terminal := defaultTerminalTool
				if !agent.IsRoot() {
					terminal = subordinateTerminalTool
				}
				reminder := reminderMessage(terminal)
				agent.History.Append(monologuemodels.RoleSystem, reminder)
				s.persist(agentContext, agent.ID, monologuemodels.Message{Role: monologuemodels.RoleSystem, Content: reminder})
				noToolCount = 0
			}
			continue
		}
		noToolCount = 0

		results := s.Executor.ExecuteBatch(ctx, agent.ID, calls)

		var terminalMessage string
		var terminalTool string
		var terminated bool
		for _, r := range results {
			toolMsg := fmt.Sprintf("[Tool '%s' result]:\n%s", r.Call.Name, r.Response.Message)
			s.persistToolCall(agentContext, r)
			agent.History.Append(monologuemodels.RoleSystem, toolMsg)
			s.persist(agentContext, agent.ID, monologuemodels.Message{Role: monologuemodels.RoleSystem, Content: toolMsg})
			agent.SetLastToolName(r.Call.Name)

			if agentContext.TelemetryHandle != nil {
				errMsg := ""
				if isErrorResponse(r.Response.Message) {
					errMsg = r.Response.Message
				}
				agentContext.TelemetryHandle.RecordToolCall(agentContext.SessionID, agentctx.ToolMetric{
					Tool:       r.Call.Name,
					ArgsKey:    executor.CacheKey(r.Call.Name, r.Call.Args),
					DurationMS: r.Duration.Milliseconds(),
					Cached:     r.FromCache,
					Summary:    truncate(r.Response.Message, 200),
					Err:        errMsg,
				})
			}

			if !terminated && r.Response.BreakLoop {
				terminalMessage = r.Response.Message
				terminalTool = r.Call.Name
				terminated = true
			}
		}

		if terminated {
			if hooksDispatcher != nil {
				hooksDispatcher.MonologueEnd(ctx, agent.ID, terminalMessage)
			}
			if agentContext.TelemetryHandle != nil {
				agentContext.TelemetryHandle.Finalize(agentContext.SessionID, terminalTool)
			}
			return terminalMessage
		}
	}

	if hooksDispatcher != nil {
		hooksDispatcher.MonologueEnd(ctx, agent.ID, fallbackMessage)
	}
	if agentContext.TelemetryHandle != nil {
		agentContext.TelemetryHandle.Finalize(agentContext.SessionID, "max_iterations")
	}
	return fallbackMessage
}

func (s *Scheduler) composeMessages(systemPrompt string, agent *agentctx.Agent) []monologuemodels.Message {
	snapshot := agent.History.Snapshot()
	out := make([]monologuemodels.Message, 0, len(snapshot)+1)
	out = append(out, monologuemodels.Message{Role: monologuemodels.RoleSystem, Content: systemPrompt})
	out = append(out, snapshot...)
	return out
}

// stream runs one LLM call, forwarding chunks to the context's stream sink
// and concatenating them into the full response text.
func (s *Scheduler) stream(ctx context.Context, agentContext *agentctx.AgentContext, agent *agentctx.Agent, model string, messages []monologuemodels.Message) (string, error) {
	chunks, err := s.LLM.Chat(ctx, llm.ChatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}

	var full string
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Text != "" {
			full += chunk.Text
			if agentContext.OnStream != nil {
				agentContext.OnStream(agent.ID, chunk.Text)
			}
		}
		if chunk.Done {
			break
		}
	}
	return full, nil
}

// terminateOnBackendError converts any connection-class, model-class, or
// unclassified LLM error into a single turn-terminating message. No
// retries happen at this layer; the backend client owns its retry policy.
func (s *Scheduler) terminateOnBackendError(ctx context.Context, agentContext *agentctx.AgentContext, agent *agentctx.Agent, err error) string {
	prefix := "[LLM Error:"
	kind := errkind.KindBackendOther
	cause := err
	if be, ok := err.(*errkind.BackendError); ok {
		prefix = be.Prefix()
		kind = be.Kind
		cause = be.Err
	}

	message := fmt.Sprintf("%s %v]", prefix, cause)

	agent.History.Append(monologuemodels.RoleAssistant, message)
	s.persist(agentContext, agent.ID, monologuemodels.Message{Role: monologuemodels.RoleAssistant, Content: message})

	if agentContext.TelemetryHandle != nil {
		agentContext.TelemetryHandle.RecordLLMCall(agentContext.SessionID, agentContext.Config.ChatModel, 0, fmt.Errorf("%s: %w", kind, err))
	}
	if agentContext.Hooks != nil {
		agentContext.Hooks.MonologueEnd(ctx, agent.ID, message)
	}
	if agentContext.TelemetryHandle != nil {
		agentContext.TelemetryHandle.Finalize(agentContext.SessionID, "backend_error")
	}
	return message
}

func (s *Scheduler) persist(agentContext *agentctx.AgentContext, agentID int, msg monologuemodels.Message) {
	if agentContext.SessionStore == nil {
		return
	}
	if err := agentContext.SessionStore.AppendMessage(agentContext.SessionID, agentID, msg); err != nil {
		s.Logger.Warn("session store append failed", "session_id", agentContext.SessionID, "error", err)
	}
}

func (s *Scheduler) persistToolCall(agentContext *agentctx.AgentContext, r executor.Result) {
	if agentContext.SessionStore == nil {
		return
	}
	argsJSON, err := json.Marshal(r.Call.Args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	if err := agentContext.SessionStore.AppendToolCall(agentContext.SessionID, r.Call.Name, string(argsJSON), r.Response.Message); err != nil {
		s.Logger.Warn("session store tool-call append failed", "session_id", agentContext.SessionID, "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func isErrorResponse(message string) bool {
	if message == "" || message[0] != '[' {
		return false
	}
	return strings.Contains(message, "[Error") ||
		strings.Contains(message, "timed out") ||
		strings.Contains(message, "' error:")
}
