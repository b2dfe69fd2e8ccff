package pool

import (
	"math"
	"sort"
	"sync"
)

// Entry is a scored expression kept by the HallOfFame.
type Entry struct {
	Expr        string
	Fingerprint string
	Skeleton    string
	IC          float64
	RankIC      float64
	Score       float64 // IC or RankIC, whichever the pool ranks by
	Nodes       int     // tree size; breaks score ties, smaller first
}

// HallOfFame keeps the K best entries by Score, sorted best first, with at
// most MaxPerSkeleton entries sharing one skeleton.
type HallOfFame struct {
	mu             sync.RWMutex
	K              int
	MaxPerSkeleton int
	entries        []Entry
}

func NewHallOfFame(k, maxPerSkeleton int) *HallOfFame {
	return &HallOfFame{K: k, MaxPerSkeleton: maxPerSkeleton}
}

// Add offers e and reports whether it was admitted. Non-finite scores are
// rejected. When full, e must beat the current worst entry; when its
// skeleton is at the cap it must beat the worst entry of that skeleton,
// which it then replaces.
func (h *HallOfFame) Add(e Entry) bool {
	if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, x := range h.entries {
		if x.Fingerprint == e.Fingerprint {
			return false
		}
	}
	if h.K > 0 && len(h.entries) >= h.K && e.Score <= h.entries[len(h.entries)-1].Score {
		return false
	}

	count, worst := 0, -1
	for i, x := range h.entries {
		if x.Skeleton != e.Skeleton {
			continue
		}
		count++
		if worst < 0 || x.Score < h.entries[worst].Score {
			worst = i
		}
	}

	if h.MaxPerSkeleton > 0 && count >= h.MaxPerSkeleton {
		if e.Score <= h.entries[worst].Score {
			return false
		}
		h.entries[worst] = e
	} else {
		h.entries = append(h.entries, e)
	}

	sort.SliceStable(h.entries, func(i, j int) bool {
		a, b := h.entries[i], h.entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Nodes < b.Nodes
	})
	if h.K > 0 && len(h.entries) > h.K {
		h.entries = h.entries[:h.K]
	}
	return true
}

func (h *HallOfFame) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns a copy, best first.
func (h *HallOfFame) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Best returns the top entry.
func (h *HallOfFame) Best() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[0], true
}
