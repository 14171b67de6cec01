package errkind

import (
	"errors"
	"testing"
)

func TestIsTerminating(t *testing.T) {
	terminating := []Kind{KindBackendConnect, KindBackendModel, KindBackendOther}
	for _, k := range terminating {
		if !k.IsTerminating() {
			t.Errorf("%s must terminate the turn", k)
		}
	}
	benign := []Kind{KindParse, KindToolTimeout, KindToolError, KindPersist, KindConfig}
	for _, k := range benign {
		if k.IsTerminating() {
			t.Errorf("%s must not terminate the turn", k)
		}
	}
}

func TestBackendErrorPrefixes(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindBackendModel, "[LLM Model Error:"},
		{KindBackendConnect, "[LLM Connection Error:"},
		{KindBackendOther, "[LLM Error:"},
	}
	for _, tt := range tests {
		e := NewBackendError(tt.kind, errors.New("x"))
		if got := e.Prefix(); got != tt.want {
			t.Errorf("Prefix(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBackendErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	e := NewBackendError("", inner)
	if e.Kind != KindBackendOther {
		t.Errorf("empty kind must default to other; got %s", e.Kind)
	}
	if !errors.Is(e, inner) {
		t.Error("Unwrap must expose the inner error")
	}
}
