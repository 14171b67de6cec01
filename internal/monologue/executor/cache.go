package executor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

// cacheEntry is the immutable-after-insert value stored per key.
type cacheEntry struct {
	message   string
	breakLoop bool
}

// ToolCache maps a canonical (tool_name, args) key to a cached
// ToolResponse, scoped to one session (an AgentContext). Insertion is
// atomic; concurrent callers racing on the same key accept
// last-writer-wins (duplicate compute is acceptable; the cache never
// returns a partial entry). Entries are immutable after insert.
type ToolCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewToolCache creates an empty ToolCache.
func NewToolCache() *ToolCache {
	return &ToolCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached response for key, if present.
func (c *ToolCache) Get(key string) (monologuemodels.ToolResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return monologuemodels.ToolResponse{}, false
	}
	return monologuemodels.ToolResponse{Message: e.message, BreakLoop: e.breakLoop}, true
}

// Set inserts or overwrites the cached response for key.
func (c *ToolCache) Set(key string, resp monologuemodels.ToolResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{message: resp.Message, breakLoop: resp.BreakLoop}
}

// CacheKey builds the canonical cache key tool_name + ":" + canonical-json(args),
// where canonical-json sorts object keys recursively and stringifies
// non-JSON-serializable values deterministically via fmt-style fallback.
func CacheKey(toolName string, args map[string]any) string {
	var b strings.Builder
	b.WriteString(toolName)
	b.WriteByte(':')
	writeCanonical(&b, args)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodedKey, _ := json.Marshal(k)
			b.Write(encodedKey)
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case string:
		encoded, _ := json.Marshal(val)
		b.Write(encoded)
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case nil:
		b.WriteString("null")
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			b.WriteString(strconv.Quote(fmt.Sprintf("%v", val)))
			return
		}
		b.Write(encoded)
	}
}
