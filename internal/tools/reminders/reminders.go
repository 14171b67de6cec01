// Package reminders implements a scheduled-reminder tool on top of
// robfig/cron: a reminder fires either once after a relative delay ("in 5
// minutes") or on a cron expression, and its message is handed to the
// Deliver callback given to NewScheduler.
package reminders

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

var relativeRe = regexp.MustCompile(`^in\s+(\d+)\s+(second|sec|minute|min|hour|hr|day)s?$`)

// Deliver receives a fired reminder's message.
type Deliver func(message string)

// Scheduler owns the cron runner and the one-shot timers.
type Scheduler struct {
	cron    *cron.Cron
	deliver Deliver

	mu     sync.Mutex
	timers []*time.Timer
}

// NewScheduler starts a reminder scheduler delivering via the given sink.
func NewScheduler(deliver Deliver) *Scheduler {
	c := cron.New()
	c.Start()
	return &Scheduler{cron: c, deliver: deliver}
}

// Stop cancels all pending reminders.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Scheduler) scheduleOnce(delay time.Duration, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, time.AfterFunc(delay, func() {
		s.deliver(message)
	}))
}

func (s *Scheduler) scheduleCron(spec, message string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.deliver(message)
	})
	return err
}

// parseWhen interprets a relative "in N <unit>" phrase as a delay.
func parseWhen(when string) (time.Duration, bool) {
	m := relativeRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(when)))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch m[2] {
	case "second", "sec":
		return time.Duration(n) * time.Second, true
	case "minute", "min":
		return time.Duration(n) * time.Minute, true
	case "hour", "hr":
		return time.Duration(n) * time.Hour, true
	case "day":
		return time.Duration(n) * 24 * time.Hour, true
	}
	return 0, false
}

// Tool is the reminder-setting tool.
type Tool struct {
	registry.BaseTool
	scheduler *Scheduler
}

// New constructs the reminder tool over a running scheduler.
func New(scheduler *Scheduler) *Tool {
	return &Tool{
		BaseTool: registry.BaseTool{
			NameValue:        "reminder",
			DescriptionValue: "Set a reminder delivered later: relative ('in 5 minutes') or a cron expression.",
			Schema: map[string]registry.ArgSchema{
				"message": {Types: []registry.ArgType{registry.ArgString}},
				"when":    {Types: []registry.ArgType{registry.ArgString}},
			},
			Required:        []string{"message", "when"},
			CacheableVal:    false,
			ParallelSafeVal: true,
		},
		scheduler: scheduler,
	}
}

// Execute schedules the reminder.
func (t *Tool) Execute(_ context.Context, args map[string]any) (monologuemodels.ToolResponse, error) {
	message, _ := args["message"].(string)
	when, _ := args["when"].(string)

	if strings.TrimSpace(message) == "" {
		return monologuemodels.ToolResponse{Message: "[Error: No reminder message provided]"}, nil
	}
	if strings.TrimSpace(when) == "" {
		return monologuemodels.ToolResponse{Message: "[Error: No reminder time provided]"}, nil
	}

	if delay, ok := parseWhen(when); ok {
		t.scheduler.scheduleOnce(delay, message)
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("Reminder set for %s from now.", delay),
		}, nil
	}

	if err := t.scheduler.scheduleCron(when, message); err != nil {
		return monologuemodels.ToolResponse{
			Message: fmt.Sprintf("[Error: invalid reminder time '%s': %v]", when, err),
		}, nil
	}
	return monologuemodels.ToolResponse{
		Message: fmt.Sprintf("Recurring reminder set on schedule '%s'.", when),
	}, nil
}
