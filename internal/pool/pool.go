// Package pool scores finished expressions for the construction environment.
// It deduplicates by fingerprint, correlates evaluated values against a
// target with the corr engine, keeps a hall of fame and optionally records
// every scored expression.
package pool

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"alphacore/internal/corr"
	"alphacore/internal/env"
	"alphacore/internal/expr"
	"alphacore/internal/store"
)

// Evaluator computes an expression's values over the loaded data, shaped
// like the target (periods x members). It returns expr.ErrOutOfDataRange
// when the expression needs history the data does not have.
type Evaluator interface {
	Evaluate(ctx context.Context, tree *expr.Node) (corr.Matrix, error)
}

// Recorder persists scored expressions. *store.Store implements it.
type Recorder interface {
	Save(ctx context.Context, rec store.Record) error
}

// Options configures a Pool. Zero values take defaults.
type Options struct {
	Capacity       int  // hall of fame size
	MaxPerSkeleton int  // hall of fame entries per skeleton
	RankIC         bool // rank by Spearman instead of Pearson
	Store          Recorder
	Logger         *zap.Logger
	OnAdmit        func(e Entry, elites int) // entry entered the hall of fame
	OnNewBest      func(Entry)
}

// Pool implements env.Scorer. It is safe for concurrent use.
type Pool struct {
	eval   Evaluator
	target corr.Matrix
	opts   Options
	log    *zap.Logger

	seen      *seenSet
	hof       *HallOfFame
	evalCount atomic.Int64
}

var _ env.Scorer = (*Pool)(nil)

// New returns a pool scoring against target. A nil eval puts the pool in
// unscored mode: expressions are deduplicated and recorded with a NaN IC.
func New(eval Evaluator, target corr.Matrix, opts Options) *Pool {
	if opts.Capacity <= 0 {
		opts.Capacity = 10
	}
	if opts.MaxPerSkeleton <= 0 {
		opts.MaxPerSkeleton = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pool{
		eval:   eval,
		target: target,
		opts:   opts,
		log:    opts.Logger.Named("pool"),
		seen:   newSeenSet(),
		hof:    NewHallOfFame(opts.Capacity, opts.MaxPerSkeleton),
	}
}

// TryNewExpr returns the IC of tree against the target. Duplicates return
// the cached value without re-evaluating. Evaluator errors are returned
// unchanged so the caller can tell ErrOutOfDataRange apart.
func (p *Pool) TryNewExpr(ctx context.Context, tree *expr.Node) (float64, error) {
	fp := tree.Fingerprint()
	if ic, ok := p.seen.Lookup(fp); ok {
		p.log.Debug("duplicate expression", zap.String("fp", fp))
		return ic, nil
	}

	ic, rankIC, err := p.score(ctx, tree)
	if err != nil {
		return 0, err
	}
	score := ic
	if p.opts.RankIC {
		score = rankIC
	}
	if !p.seen.Store(fp, score) {
		cached, _ := p.seen.Lookup(fp)
		return cached, nil
	}

	cx := expr.ComputeComplexity(tree)
	entry := Entry{
		Expr:        tree.String(),
		Fingerprint: fp,
		Skeleton:    tree.Skeleton(),
		IC:          ic,
		RankIC:      rankIC,
		Score:       score,
		Nodes:       cx.NodeCount,
	}
	if p.hof.Add(entry) {
		if p.opts.OnAdmit != nil {
			p.opts.OnAdmit(entry, p.hof.Len())
		}
		if best, ok := p.hof.Best(); ok && best.Fingerprint == fp {
			p.log.Info("new best expression",
				zap.String("expr", entry.Expr),
				zap.Float64("ic", ic),
				zap.Float64("rank_ic", rankIC),
				zap.Int("nodes", cx.NodeCount),
				zap.Int("depth", cx.MaxDepth),
				zap.Int("features", cx.UniqueFeatureCount()))
			if p.opts.OnNewBest != nil {
				p.opts.OnNewBest(entry)
			}
		}
	}

	if p.opts.Store != nil {
		outcome := env.OutcomeScored
		if math.IsNaN(score) {
			outcome = env.OutcomeUndefined
		}
		rec := store.Record{
			EpisodeID:   env.EpisodeID(ctx),
			Expr:        entry.Expr,
			Fingerprint: fp,
			IC:          ic,
			RankIC:      rankIC,
			Outcome:     outcome.String(),
		}
		if err := p.opts.Store.Save(ctx, rec); err != nil {
			p.log.Warn("record expression", zap.String("fp", fp), zap.Error(err))
		}
	}
	return score, nil
}

func (p *Pool) score(ctx context.Context, tree *expr.Node) (ic, rankIC float64, err error) {
	if p.eval == nil {
		return math.NaN(), math.NaN(), nil
	}
	p.evalCount.Add(1)
	values, err := p.eval.Evaluate(ctx, tree)
	if err != nil {
		return 0, 0, err
	}
	pearson, err := corr.BatchPearson(values, p.target)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: ic of %s: %w", tree, err)
	}
	spearman, err := corr.BatchSpearman(values, p.target)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: rank ic of %s: %w", tree, err)
	}
	return corr.NanMean(pearson), corr.NanMean(spearman), nil
}

// HallOfFame exposes the best expressions seen so far.
func (p *Pool) HallOfFame() *HallOfFame { return p.hof }

// EvalCount is the number of Evaluator calls made.
func (p *Pool) EvalCount() int64 { return p.evalCount.Load() }

// SeenCount is the number of distinct fingerprints scored.
func (p *Pool) SeenCount() int { return p.seen.Len() }

// Snapshot captures the pool state for SaveCheckpoint.
func (p *Pool) Snapshot() Checkpoint {
	cp := Checkpoint{EvalCount: p.evalCount.Load()}
	for _, e := range p.hof.Entries() {
		cp.Elites = append(cp.Elites, entryToSlim(e))
	}
	for _, s := range p.seen.Snapshot() {
		cp.Seen = append(cp.Seen, SeenEntry{Fingerprint: s.Fingerprint, IC: toJSONFloat(s.IC)})
	}
	return cp
}

// Restore merges a checkpoint into the pool.
func (p *Pool) Restore(cp Checkpoint) {
	entries := make([]seenEntry, 0, len(cp.Seen))
	for _, s := range cp.Seen {
		entries = append(entries, seenEntry{Fingerprint: s.Fingerprint, IC: fromJSONFloat(s.IC)})
	}
	p.seen.Restore(entries)
	for _, e := range cp.Elites {
		p.hof.Add(slimToEntry(e))
	}
	p.evalCount.Add(cp.EvalCount)
}
