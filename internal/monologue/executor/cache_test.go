package executor

import (
	"testing"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

func TestCacheKey_KeyOrderIrrelevant(t *testing.T) {
	a := CacheKey("memory", map[string]any{"action": "search", "text": "x"})
	b := CacheKey("memory", map[string]any{"text": "x", "action": "search"})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestCacheKey_DistinguishesValues(t *testing.T) {
	a := CacheKey("memory", map[string]any{"text": "x"})
	b := CacheKey("memory", map[string]any{"text": "y"})
	if a == b {
		t.Error("different args must produce different keys")
	}
}

func TestCacheKey_NestedAndScalars(t *testing.T) {
	key := CacheKey("t", map[string]any{
		"nested": map[string]any{"b": float64(2), "a": float64(1)},
		"list":   []any{"x", true, nil},
	})
	want := `t:{"list":["x",true,null],"nested":{"a":1,"b":2}}`
	if key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
}

func TestToolCache_GetSet(t *testing.T) {
	c := NewToolCache()

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache must miss")
	}

	c.Set("k", monologuemodels.ToolResponse{Message: "v", BreakLoop: true})
	got, ok := c.Get("k")
	if !ok || got.Message != "v" || !got.BreakLoop {
		t.Errorf("got %+v, ok=%v", got, ok)
	}
}
