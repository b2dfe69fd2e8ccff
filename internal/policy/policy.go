// Package policy provides token-selection policies that drive an env.Env.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"alphacore/internal/env"
	"alphacore/internal/token"
)

// ErrNoLegalAction is returned when a report permits none of the policy's
// actions.
var ErrNoLegalAction = errors.New("policy: no legal action")

// Policy picks the next token given the legality report.
type Policy interface {
	Choose(rng *rand.Rand, report env.Report) (token.Token, error)
}

// Random picks uniformly among the legal actions. With LeafProb > 0 it first
// flips a coin and, on success, restricts the choice to leaf tokens, which
// keeps expressions shallow.
type Random struct {
	Actions  []token.Token
	LeafProb float64
}

// NewRandom returns a uniform policy over the catalog's action space.
func NewRandom(c token.Catalog) *Random {
	return &Random{Actions: c.Actions()}
}

func (p *Random) Choose(rng *rand.Rand, report env.Report) (token.Token, error) {
	if !report.Any() {
		return token.Token{}, ErrNoLegalAction
	}
	legal := make([]token.Token, 0, len(p.Actions))
	leaves := make([]token.Token, 0, len(p.Actions))
	for _, a := range p.Actions {
		if !report.Allows(a) {
			continue
		}
		legal = append(legal, a)
		if a.Kind != token.KindOperator {
			leaves = append(leaves, a)
		}
	}
	if len(legal) == 0 {
		return token.Token{}, ErrNoLegalAction
	}
	if p.LeafProb > 0 && len(leaves) > 0 && rng.Float64() < p.LeafProb {
		return leaves[rng.Intn(len(leaves))], nil
	}
	return legal[rng.Intn(len(legal))], nil
}

// RunEpisode resets e with seed and steps it with p until the episode ends.
// Randomness comes from e.Rand so a seeded episode is reproducible.
func RunEpisode(ctx context.Context, e *env.Env, p Policy, seed *int64) (env.Summary, error) {
	_, report := e.Reset(seed)
	for !e.Done() {
		if err := ctx.Err(); err != nil {
			return env.Summary{}, err
		}
		tok, err := p.Choose(e.Rand(), report)
		if err != nil {
			return env.Summary{}, fmt.Errorf("episode %s: %w", e.ID(), err)
		}
		res, err := e.Step(ctx, tok)
		if err != nil {
			return env.Summary{}, fmt.Errorf("episode %s: %w", e.ID(), err)
		}
		report = res.Report
	}
	return e.Summary(), nil
}
