package memory

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one stored memory.
type Entry struct {
	ID        int
	Content   string
	Area      string
	Namespace string
	CreatedAt time.Time
}

// SearchResult pairs an Entry with its keyword-overlap score in [0,1].
type SearchResult struct {
	Entry Entry
	Score float64
}

// Index is a mutex-guarded, in-process keyword index backing the memory
// and knowledge facades. It satisfies the Tool contract's needs (save,
// search, delete, forget) without claiming to be a production retrieval
// system; the vector-memory subsystem proper is an external collaborator.
type Index struct {
	mu      sync.RWMutex
	nextID  int
	entries []Entry
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{}
}

// Save stores content under the given area and namespace and returns the
// new entry's id.
func (ix *Index) Save(content, area, namespace string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.nextID++
	ix.entries = append(ix.entries, Entry{
		ID:        ix.nextID,
		Content:   content,
		Area:      area,
		Namespace: namespace,
		CreatedAt: time.Now().UTC(),
	})
	return ix.nextID
}

// Search scores every entry in the namespace (and area, unless area is
// empty meaning "all") by keyword overlap with the query and returns the
// top k results at or above threshold, best first.
func (ix *Index) Search(query, area, namespace string, k int, threshold float64) []SearchResult {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []SearchResult
	for _, e := range ix.entries {
		if namespace != "" && e.Namespace != namespace {
			continue
		}
		if area != "" && e.Area != area {
			continue
		}
		score := overlapScore(terms, tokenize(e.Content))
		if score >= threshold && score > 0 {
			results = append(results, SearchResult{Entry: e, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Delete removes every entry in the namespace (and area, unless empty)
// that matches the query with a nonzero score, returning the count removed.
func (ix *Index) Delete(query, area, namespace string) int {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.entries[:0]
	removed := 0
	for _, e := range ix.entries {
		match := (namespace == "" || e.Namespace == namespace) &&
			(area == "" || e.Area == area) &&
			overlapScore(terms, tokenize(e.Content)) > 0
		if match {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	ix.entries = kept
	return removed
}

// Forget removes every entry in the namespace (and area, unless empty).
func (ix *Index) Forget(area, namespace string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.entries[:0]
	removed := 0
	for _, e := range ix.entries {
		if (namespace == "" || e.Namespace == namespace) && (area == "" || e.Area == area) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	ix.entries = kept
	return removed
}

// Len reports the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) > 1 {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for t := range query {
		if _, ok := doc[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
