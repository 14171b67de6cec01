package reminders

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"in 5 minutes", 5 * time.Minute, true},
		{"in 1 hour", time.Hour, true},
		{"in 30 seconds", 30 * time.Second, true},
		{"in 2 hrs", 2 * time.Hour, true},
		{"in 1 day", 24 * time.Hour, true},
		{"IN 10 MINS", 10 * time.Minute, true},
		{"", 0, false},
		{"tomorrow", 0, false},
		{"in minutes", 0, false},
		{"in 0 minutes", 0, false},
		{"*/5 * * * *", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseWhen(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseWhen(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExecute_OneShotDelivers(t *testing.T) {
	delivered := make(chan string, 1)
	s := NewScheduler(func(msg string) { delivered <- msg })
	defer s.Stop()
	tool := New(s)

	resp, err := tool.Execute(context.Background(), map[string]any{
		"message": "stand up", "when": "in 1 second",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Message, "Reminder set for") {
		t.Errorf("got %q", resp.Message)
	}

	select {
	case msg := <-delivered:
		if msg != "stand up" {
			t.Errorf("delivered %q", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reminder never fired")
	}
}

func TestExecute_CronSpecAccepted(t *testing.T) {
	s := NewScheduler(func(string) {})
	defer s.Stop()
	tool := New(s)

	resp, _ := tool.Execute(context.Background(), map[string]any{
		"message": "weekly review", "when": "0 9 * * 1",
	})
	if !strings.HasPrefix(resp.Message, "Recurring reminder set") {
		t.Errorf("got %q", resp.Message)
	}
}

func TestExecute_InvalidSpecRejected(t *testing.T) {
	s := NewScheduler(func(string) {})
	defer s.Stop()
	tool := New(s)

	resp, _ := tool.Execute(context.Background(), map[string]any{
		"message": "x", "when": "whenever you feel like it",
	})
	if !strings.HasPrefix(resp.Message, "[Error: invalid reminder time") {
		t.Errorf("got %q", resp.Message)
	}
}

func TestExecute_MissingFields(t *testing.T) {
	s := NewScheduler(func(string) {})
	defer s.Stop()
	tool := New(s)

	resp, _ := tool.Execute(context.Background(), map[string]any{"when": "in 1 minute"})
	if resp.Message != "[Error: No reminder message provided]" {
		t.Errorf("got %q", resp.Message)
	}
	resp, _ = tool.Execute(context.Background(), map[string]any{"message": "x"})
	if resp.Message != "[Error: No reminder time provided]" {
		t.Errorf("got %q", resp.Message)
	}
}
