package scheduler

import (
	"fmt"
	"strings"

	"github.com/nexuscore/monologue/internal/monologue/context"
	"github.com/nexuscore/monologue/internal/monologue/registry"
)

// PromptTemplate renders a system prompt. Renderers may fail (e.g. a
// missing template file); the scheduler falls back to a minimal string
// when Render returns an error.
type PromptTemplate interface {
	Render(agent *context.Agent, toolDescriptions string) (string, error)
}

// buildSystemPrompt assembles the system prompt for one iteration: the
// override path for subordinates with an explicit SystemPromptOverride, or
// the template-engine path with a minimal fallback string on render error.
func buildSystemPrompt(agent *context.Agent, reg *registry.Registry, tmpl PromptTemplate) string {
	descriptions := reg.DescribeAll()

	if agent.SystemPromptOverride != "" {
		return agent.SystemPromptOverride + "\n\n" + descriptions + "\n" + taskDoneInstruction(agent)
	}

	if tmpl != nil {
		if rendered, err := tmpl.Render(agent, descriptions); err == nil {
			return rendered
		}
	}

	return fallbackPrompt(agent, descriptions)
}

func fallbackPrompt(agent *context.Agent, descriptions string) string {
	return fmt.Sprintf(
		"You are Agent %d. Available tools:\n%sUse the terminal response tool to deliver your final answer.",
		agent.ID, descriptions,
	)
}

func taskDoneInstruction(agent *context.Agent) string {
	if agent.IsRoot() {
		return ""
	}
	return "When your delegated task is complete, call the task_done tool with your result."
}

// reminderMessage is the literal text appended when the no-tool-call
// counter reaches the reminder threshold.
func reminderMessage(exampleToolName string) string {
	example := fmt.Sprintf(`{"tool_name":"%s","tool_args":{"text":"..."}}`, exampleToolName)
	var b strings.Builder
	b.WriteString("Reminder: You must use a tool call JSON to proceed. Example: ")
	b.WriteString(example)
	return b.String()
}
