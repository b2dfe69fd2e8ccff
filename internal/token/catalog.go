package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownToken is returned by Parse for text that names nothing in the
// catalog.
var ErrUnknownToken = errors.New("token: unknown token")

// Catalog is the set of operators and operands available to construction.
type Catalog struct {
	Operators  []Operator
	Features   []string
	Constants  []float64
	DeltaTimes []int
}

// DefaultCatalog mirrors the stock daily-bar alpha vocabulary.
func DefaultCatalog() Catalog {
	var ops []Operator
	add := func(cat Category, names ...string) {
		for _, n := range names {
			ops = append(ops, Operator{Name: n, Category: cat})
		}
	}
	add(Unary, "Abs", "Sign", "Log", "CSRank")
	add(Binary, "Add", "Sub", "Mul", "Div", "Pow", "Greater", "Less")
	add(Rolling, "Ref", "Mean", "Sum", "Std", "Var", "Skew", "Kurt",
		"Max", "Min", "Med", "Mad", "Rank", "Delta", "WMA", "EMA")
	add(PairRolling, "Cov", "Corr")

	return Catalog{
		Operators:  ops,
		Features:   []string{"open", "close", "high", "low", "volume", "vwap"},
		Constants:  []float64{-30, -10, -5, -2, -1, -0.5, -0.01, 0.01, 0.5, 1, 2, 5, 10, 30},
		DeltaTimes: []int{10, 20, 30, 40, 50},
	}
}

// Actions returns the flat action space: operators, features, constants,
// delta times, then SEP. Indices are stable for a given catalog.
func (c Catalog) Actions() []Token {
	out := make([]Token, 0, len(c.Operators)+len(c.Features)+len(c.Constants)+len(c.DeltaTimes)+1)
	for _, op := range c.Operators {
		out = append(out, Op(op))
	}
	for _, f := range c.Features {
		out = append(out, Feature(f))
	}
	for _, v := range c.Constants {
		out = append(out, Const(v))
	}
	for _, d := range c.DeltaTimes {
		out = append(out, DeltaTime(d))
	}
	return append(out, Sep())
}

// Operator looks up an operator by name.
func (c Catalog) Operator(name string) (Operator, bool) {
	for _, op := range c.Operators {
		if op.Name == name {
			return op, true
		}
	}
	return Operator{}, false
}

// Parse reads the text form produced by Token.String: "SEP", an operator
// name, "$feature", "20d", or a number.
func (c Catalog) Parse(s string) (Token, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "SEP":
		return Sep(), nil
	case s == "BEG":
		return Begin(), nil
	case strings.HasPrefix(s, "$"):
		name := s[1:]
		for _, f := range c.Features {
			if f == name {
				return Feature(name), nil
			}
		}
		return Token{}, fmt.Errorf("%w: feature %q", ErrUnknownToken, name)
	case strings.HasSuffix(s, "d"):
		if d, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return DeltaTime(d), nil
		}
	}
	if op, ok := c.Operator(s); ok {
		return Op(op), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Const(v), nil
	}
	return Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, s)
}

// ParseSequence parses whitespace-separated tokens.
func (c Catalog) ParseSequence(s string) ([]Token, error) {
	var out []Token
	for _, field := range strings.Fields(s) {
		tok, err := c.Parse(field)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}
