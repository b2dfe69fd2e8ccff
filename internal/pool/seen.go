package pool

import (
	"sort"
	"sync"
)

const numShards = 64 // power of 2

// seenSet caches the IC of every fingerprint already scored. Sharding keeps
// concurrent sample workers from contending on one lock.
type seenSet struct {
	shards [numShards]seenShard
}

type seenShard struct {
	mu    sync.Mutex
	items map[string]float64
}

func newSeenSet() *seenSet {
	s := &seenSet{}
	for i := range s.shards {
		s.shards[i].items = make(map[string]float64, 64)
	}
	return s
}

// fnv1a is the 32-bit FNV-1a hash.
func fnv1a(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func (s *seenSet) shard(fp string) *seenShard {
	return &s.shards[fnv1a(fp)&(numShards-1)]
}

// Lookup returns the cached IC for fp.
func (s *seenSet) Lookup(fp string) (float64, bool) {
	sh := s.shard(fp)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	ic, ok := sh.items[fp]
	return ic, ok
}

// Store records ic for fp. It returns false if fp was already present, in
// which case the first value wins.
func (s *seenSet) Store(fp string, ic float64) bool {
	sh := s.shard(fp)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.items[fp]; ok {
		return false
	}
	sh.items[fp] = ic
	return true
}

func (s *seenSet) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.items)
		sh.mu.Unlock()
	}
	return n
}

type seenEntry struct {
	Fingerprint string
	IC          float64
}

// Snapshot returns every entry sorted by fingerprint so checkpoints are
// reproducible.
func (s *seenSet) Snapshot() []seenEntry {
	out := make([]seenEntry, 0, 256)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for fp, ic := range sh.items {
			out = append(out, seenEntry{Fingerprint: fp, IC: ic})
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

func (s *seenSet) Restore(entries []seenEntry) {
	for _, e := range entries {
		s.Store(e.Fingerprint, e.IC)
	}
}
