package hooks

import (
	"context"
	"testing"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

type recordingExt struct {
	BaseExtension
	events   *[]string
	override []monologuemodels.Message
}

func (e *recordingExt) OnMessageLoopStart(context.Context, int) {
	*e.events = append(*e.events, e.NameValue+":loop_start")
}

func (e *recordingExt) OnBeforeLLMCall(_ context.Context, _ int, _ []monologuemodels.Message) []monologuemodels.Message {
	*e.events = append(*e.events, e.NameValue+":before_llm")
	return e.override
}

type panickingExt struct {
	BaseExtension
}

func (e *panickingExt) OnMessageLoopStart(context.Context, int) {
	panic("boom")
}

func TestDispatch_RegistrationOrder(t *testing.T) {
	var events []string
	d := New(nil)
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "first"}, events: &events})
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "second"}, events: &events})

	d.MessageLoopStart(context.Background(), 0)

	if len(events) != 2 || events[0] != "first:loop_start" || events[1] != "second:loop_start" {
		t.Errorf("events = %v", events)
	}
}

func TestBeforeLLMCall_LastNonNilWins(t *testing.T) {
	var events []string
	overrideA := []monologuemodels.Message{{Role: monologuemodels.RoleSystem, Content: "A"}}
	overrideB := []monologuemodels.Message{{Role: monologuemodels.RoleSystem, Content: "B"}}

	d := New(nil)
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "a"}, events: &events, override: overrideA})
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "b"}, events: &events, override: overrideB})
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "c"}, events: &events, override: nil})

	result := d.BeforeLLMCall(context.Background(), 0, nil)

	if len(result) != 1 || result[0].Content != "B" {
		t.Errorf("result = %+v, want the last non-nil override (B)", result)
	}
	if len(events) != 3 {
		t.Errorf("all extensions must still run; events = %v", events)
	}
}

func TestBeforeLLMCall_NoOverrideReturnsNil(t *testing.T) {
	var events []string
	d := New(nil)
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "a"}, events: &events})

	if result := d.BeforeLLMCall(context.Background(), 0, nil); result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

func TestDispatch_PanicDoesNotAbort(t *testing.T) {
	var events []string
	d := New(nil)
	d.Register(&panickingExt{BaseExtension: BaseExtension{NameValue: "bad"}})
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "good"}, events: &events})

	d.MessageLoopStart(context.Background(), 0)

	if len(events) != 1 || events[0] != "good:loop_start" {
		t.Errorf("later extension must still run after a panic; events = %v", events)
	}
}

func TestDispatch_CancelledContextStopsBetweenExtensions(t *testing.T) {
	var events []string
	d := New(nil)
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "a"}, events: &events})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.MessageLoopStart(ctx, 0)

	if len(events) != 0 {
		t.Errorf("cancelled dispatch must not invoke handlers; events = %v", events)
	}
}

func TestDispatch_DisabledExtensionSkipped(t *testing.T) {
	var events []string
	d := New(nil)
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "off", Disabled: true}, events: &events})
	d.Register(&recordingExt{BaseExtension: BaseExtension{NameValue: "on"}, events: &events})

	d.MessageLoopStart(context.Background(), 0)

	if len(events) != 1 || events[0] != "on:loop_start" {
		t.Errorf("events = %v", events)
	}
}
