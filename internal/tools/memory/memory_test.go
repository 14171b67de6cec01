package memory

import (
	"context"
	"strings"
	"testing"
)

func TestSaveAndSearch(t *testing.T) {
	ix := NewIndex()
	tool := New(ix, nil)
	ctx := context.Background()

	resp, err := tool.Execute(ctx, map[string]any{
		"action": "save", "text": "the database password rotation runs monthly",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(resp.Message, "Saved to memory") {
		t.Errorf("save message = %q", resp.Message)
	}

	resp, err = tool.Execute(ctx, map[string]any{
		"action": "search", "text": "password rotation",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(resp.Message, "Memories found:") ||
		!strings.Contains(resp.Message, "database password rotation") {
		t.Errorf("search message = %q", resp.Message)
	}
}

func TestSearchNoResults(t *testing.T) {
	tool := New(NewIndex(), nil)
	resp, _ := tool.Execute(context.Background(), map[string]any{
		"action": "search", "text": "nothing here",
	})
	if resp.Message != "No relevant memories found." {
		t.Errorf("got %q", resp.Message)
	}
}

func TestDeleteAndForget(t *testing.T) {
	ix := NewIndex()
	tool := New(ix, nil)
	ctx := context.Background()

	tool.Execute(ctx, map[string]any{"action": "save", "text": "alpha fact"})
	tool.Execute(ctx, map[string]any{"action": "save", "text": "beta fact"})

	resp, _ := tool.Execute(ctx, map[string]any{"action": "delete", "text": "alpha fact"})
	if !strings.HasPrefix(resp.Message, "Deleted 2 memories") {
		t.Errorf("delete message = %q", resp.Message)
	}

	resp, _ = tool.Execute(ctx, map[string]any{"action": "forget"})
	if !strings.HasPrefix(resp.Message, "Cleared all memories") {
		t.Errorf("forget message = %q", resp.Message)
	}
	if ix.Len() != 0 {
		t.Errorf("index len = %d after forget", ix.Len())
	}
}

func TestUnknownAction(t *testing.T) {
	tool := New(NewIndex(), nil)
	resp, _ := tool.Execute(context.Background(), map[string]any{"action": "mangle"})
	if !strings.HasPrefix(resp.Message, "[Error: Unknown memory action 'mangle'") {
		t.Errorf("got %q", resp.Message)
	}
}

func TestDynamicRefinements(t *testing.T) {
	tool := New(NewIndex(), nil)

	read := map[string]any{"action": "search", "text": "x"}
	write := map[string]any{"action": "save", "text": "x"}

	if !tool.ShouldCache(read) || !tool.IsParallelSafe(read) {
		t.Error("read actions must cache and parallelize")
	}
	if tool.ShouldCache(write) || tool.IsParallelSafe(write) {
		t.Error("write actions must not cache or parallelize")
	}
	// Default action is search.
	if !tool.ShouldCache(map[string]any{}) {
		t.Error("missing action defaults to search")
	}
}

func TestRecordOpCallback(t *testing.T) {
	var ops []string
	tool := New(NewIndex(), func(op string) { ops = append(ops, op) })

	tool.Execute(context.Background(), map[string]any{"action": "save", "text": "x"})
	tool.Execute(context.Background(), map[string]any{"action": "search", "text": "x"})

	if len(ops) != 2 || ops[0] != "save" || ops[1] != "search" {
		t.Errorf("ops = %v", ops)
	}
}
