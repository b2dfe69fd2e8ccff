// Package env runs one alpha construction episode at a time: it feeds
// tokens to an expression builder, decides when the episode ends and asks a
// Scorer for the reward of the finished expression.
package env

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alphacore/internal/expr"
	"alphacore/internal/token"
)

const (
	// DefaultMaxExprLength bounds the token sequence, BEG included.
	DefaultMaxExprLength = 15
	// PenaltyReward is returned when the length ceiling is hit before the
	// expression is complete.
	PenaltyReward = -1.0
)

var (
	// ErrInvalidAction wraps builder rejections. The token is not recorded
	// and the episode continues.
	ErrInvalidAction = errors.New("env: invalid action")
	// ErrEpisodeDone is returned by Step after the episode has terminated.
	ErrEpisodeDone = errors.New("env: episode is done, call Reset")
)

// Scorer turns a finished expression into a fitness value. Returning
// expr.ErrOutOfDataRange yields a zero reward; NaN means no signal.
type Scorer interface {
	TryNewExpr(ctx context.Context, tree *expr.Node) (float64, error)
}

type episodeKey struct{}

func withEpisode(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, episodeKey{}, id)
}

// EpisodeID returns the id of the episode a scoring call belongs to, or ""
// when ctx did not come from an Env.
func EpisodeID(ctx context.Context) string {
	id, _ := ctx.Value(episodeKey{}).(string)
	return id
}

// Observer is called once per finished episode.
type Observer func(Summary)

// Options configures an Env. Zero values take defaults.
type Options struct {
	MaxExprLength int
	Grammar       expr.Grammar
	Logger        *zap.Logger
	PrintExpr     bool
	Observers     []Observer
}

// StepResult is what Step returns for every accepted call.
type StepResult struct {
	Tokens    []token.Token
	Reward    float64
	Done      bool
	Truncated bool
	Report    Report
	Outcome   Outcome
}

// Summary describes a finished episode.
type Summary struct {
	ID      string
	Expr    string
	Tokens  []token.Token
	Reward  float64
	Outcome Outcome
}

// Env is a single-threaded construction episode. Independent Envs may run
// concurrently; one Env must not be shared between goroutines.
type Env struct {
	scorer Scorer
	opts   Options
	log    *zap.Logger
	rng    *rand.Rand

	id      string
	tokens  []token.Token
	builder *expr.Builder
	done    bool

	evalCount int
	last      Summary
}

// New returns an Env that is already reset with a time-based seed. A nil
// scorer makes every finished expression score NaN.
func New(scorer Scorer, opts Options) *Env {
	if opts.MaxExprLength <= 0 {
		opts.MaxExprLength = DefaultMaxExprLength
	}
	if opts.Grammar.MaxTokens <= 0 {
		opts.Grammar.MaxTokens = opts.MaxExprLength - 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &Env{
		scorer: scorer,
		opts:   opts,
		log:    opts.Logger.Named("env"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.Reset(nil)
	return e
}

// Reset starts a new episode. A non-nil seed re-seeds the Env's own random
// source; no global state is touched.
func (e *Env) Reset(seed *int64) ([]token.Token, Report) {
	if seed != nil {
		e.rng.Seed(*seed)
	}
	e.id = uuid.NewString()
	e.tokens = []token.Token{token.Begin()}
	e.builder = expr.NewBuilder(e.opts.Grammar)
	e.done = false
	return e.Tokens(), e.ValidActionTypes()
}

// Step applies one token. In priority order: SEP finishes and scores the
// episode; below the length ceiling the token is appended; otherwise the
// episode ends with a score if the expression is complete and
// PenaltyReward if not.
func (e *Env) Step(ctx context.Context, tok token.Token) (StepResult, error) {
	if e.done {
		return StepResult{}, ErrEpisodeDone
	}

	var (
		reward  float64
		outcome = OutcomeContinue
	)
	switch {
	case tok.IsSep():
		reward, outcome = e.evaluate(ctx)
		e.done = true
	case len(e.tokens) < e.opts.MaxExprLength:
		if err := e.builder.AddToken(tok); err != nil {
			return e.result(0, OutcomeContinue), fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}
		e.tokens = append(e.tokens, tok)
	default:
		e.done = true
		if e.builder.IsValid() {
			reward, outcome = e.evaluate(ctx)
		} else {
			e.log.Debug("length ceiling on incomplete expression",
				zap.String("episode", e.id),
				zap.Int("open_slots", e.builder.OpenSlots()))
			reward, outcome = PenaltyReward, OutcomePenalty
		}
	}

	if e.done {
		e.finish(reward, outcome)
	}
	return e.result(reward, outcome), nil
}

// evaluate scores the current tree. The reward is always a number.
func (e *Env) evaluate(ctx context.Context) (float64, Outcome) {
	tree, err := e.builder.Tree()
	if err != nil {
		e.log.Debug("stop on incomplete expression",
			zap.String("episode", e.id),
			zap.Int("tokens", e.builder.Used()),
			zap.Int("open_slots", e.builder.OpenSlots()),
			zap.Error(err))
		return 0, OutcomeIncomplete
	}
	e.evalCount++
	if e.opts.PrintExpr {
		e.log.Info("expression", zap.String("episode", e.id), zap.Stringer("expr", tree))
	}
	if e.scorer == nil {
		return 0, OutcomeUndefined
	}

	ic, err := e.scorer.TryNewExpr(withEpisode(ctx, e.id), tree)
	switch {
	case errors.Is(err, expr.ErrOutOfDataRange):
		return 0, OutcomeOutOfRange
	case err != nil:
		e.log.Warn("scorer failed", zap.String("episode", e.id), zap.Stringer("expr", tree), zap.Error(err))
		return 0, OutcomeScoreFailed
	case math.IsNaN(ic):
		return 0, OutcomeUndefined
	}
	return ic, OutcomeScored
}

func (e *Env) finish(reward float64, outcome Outcome) {
	e.last = Summary{
		ID:      e.id,
		Expr:    e.exprString(),
		Tokens:  e.Tokens(),
		Reward:  reward,
		Outcome: outcome,
	}
	e.log.Debug("episode done",
		zap.String("episode", e.id),
		zap.String("expr", e.last.Expr),
		zap.Float64("reward", reward),
		zap.Stringer("outcome", outcome))
	for _, obs := range e.opts.Observers {
		obs(e.last)
	}
}

func (e *Env) exprString() string {
	if tree, err := e.builder.Tree(); err == nil {
		return tree.String()
	}
	parts := make([]string, 0, len(e.tokens)-1)
	for _, t := range e.tokens[1:] {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

func (e *Env) result(reward float64, outcome Outcome) StepResult {
	return StepResult{
		Tokens:  e.Tokens(),
		Reward:  reward,
		Done:    e.done,
		Report:  e.ValidActionTypes(),
		Outcome: outcome,
	}
}

// ValidActionTypes recomputes the legality report from the builder.
func (e *Env) ValidActionTypes() Report {
	return reportFor(e.builder)
}

// Tokens returns a copy of the sequence so far, BEG first.
func (e *Env) Tokens() []token.Token {
	out := make([]token.Token, len(e.tokens))
	copy(out, e.tokens)
	return out
}

// Rand is the episode's random source, for policies that should follow the
// Env's seeding.
func (e *Env) Rand() *rand.Rand { return e.rng }

// Done reports whether the current episode has terminated.
func (e *Env) Done() bool { return e.done }

// ID is the current episode id.
func (e *Env) ID() string { return e.id }

// EvalCount is the number of complete expressions handed to the scorer path
// across all episodes.
func (e *Env) EvalCount() int { return e.evalCount }

// Summary returns the most recently finished episode.
func (e *Env) Summary() Summary { return e.last }
