package pool

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

const checkpointVersion = 1

// SlimEntry is the JSON form of a HallOfFame entry. NaN is written as null.
type SlimEntry struct {
	Expr        string   `json:"expr"`
	Fingerprint string   `json:"fingerprint"`
	Skeleton    string   `json:"skeleton"`
	IC          *float64 `json:"ic"`
	RankIC      *float64 `json:"rank_ic"`
	Score       *float64 `json:"score"`
	Nodes       int      `json:"nodes,omitempty"`
}

// SeenEntry is one cached fingerprint and its IC.
type SeenEntry struct {
	Fingerprint string   `json:"fp"`
	IC          *float64 `json:"ic"`
}

// Checkpoint is the persisted pool state.
type Checkpoint struct {
	Version     int         `json:"version"`
	SavedAtUnix int64       `json:"saved_at_unix"`
	EvalCount   int64       `json:"eval_count"`
	Elites      []SlimEntry `json:"elites"`
	Seen        []SeenEntry `json:"seen"`
}

func toJSONFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromJSONFloat(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func entryToSlim(e Entry) SlimEntry {
	return SlimEntry{
		Expr:        e.Expr,
		Fingerprint: e.Fingerprint,
		Skeleton:    e.Skeleton,
		IC:          toJSONFloat(e.IC),
		RankIC:      toJSONFloat(e.RankIC),
		Score:       toJSONFloat(e.Score),
		Nodes:       e.Nodes,
	}
}

func slimToEntry(s SlimEntry) Entry {
	return Entry{
		Expr:        s.Expr,
		Fingerprint: s.Fingerprint,
		Skeleton:    s.Skeleton,
		IC:          fromJSONFloat(s.IC),
		RankIC:      fromJSONFloat(s.RankIC),
		Score:       fromJSONFloat(s.Score),
		Nodes:       s.Nodes,
	}
}

// SaveCheckpoint writes cp to path through a temp file and rename.
func SaveCheckpoint(path string, cp Checkpoint) error {
	cp.Version = checkpointVersion
	cp.SavedAtUnix = time.Now().Unix()

	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("pool: encode checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("pool: write checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	b, err := os.ReadFile(path)
	if err != nil {
		return cp, err
	}
	if err := json.Unmarshal(b, &cp); err != nil {
		return cp, fmt.Errorf("pool: decode checkpoint %s: %w", path, err)
	}
	if cp.Version != checkpointVersion {
		return cp, fmt.Errorf("pool: checkpoint %s has version %d, want %d", path, cp.Version, checkpointVersion)
	}
	return cp, nil
}
