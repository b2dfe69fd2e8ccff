// Package token defines the atomic units of the alpha expression language
// and the catalog of operators and operands a construction episode draws
// from.
package token

import (
	"fmt"
	"strconv"
)

// Kind tags the token variant.
type Kind uint8

const (
	KindSequence Kind = iota
	KindOperator
	KindFeature
	KindConstant
	KindDeltaTime
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindOperator:
		return "operator"
	case KindFeature:
		return "feature"
	case KindConstant:
		return "constant"
	case KindDeltaTime:
		return "delta_time"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Indicator distinguishes the sequence boundary markers.
type Indicator uint8

const (
	BEG Indicator = iota
	SEP
)

// Category groups operators by the shape of their operands.
type Category uint8

const (
	Unary       Category = iota // f(x)
	Binary                      // f(x, y)
	Rolling                     // f(x, dt)
	PairRolling                 // f(x, y, dt)
)

// NumCategories is the number of operator categories.
const NumCategories = 4

// Categories lists every operator category in declaration order.
var Categories = [NumCategories]Category{Unary, Binary, Rolling, PairRolling}

// Arity is the number of children an operator of this category takes.
func (c Category) Arity() int {
	switch c {
	case Unary:
		return 1
	case Binary, Rolling:
		return 2
	case PairRolling:
		return 3
	default:
		return 0
	}
}

func (c Category) String() string {
	switch c {
	case Unary:
		return "unary"
	case Binary:
		return "binary"
	case Rolling:
		return "rolling"
	case PairRolling:
		return "pair_rolling"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Operator is a named function of a fixed category.
type Operator struct {
	Name     string
	Category Category
}

// Token is an immutable tagged variant; only the field matching Kind is set.
type Token struct {
	Kind      Kind
	Indicator Indicator
	Op        Operator
	Feature   string
	Const     float64
	DeltaTime int
}

// Begin returns the sequence start marker.
func Begin() Token { return Token{Kind: KindSequence, Indicator: BEG} }

// Sep returns the separator/end marker.
func Sep() Token { return Token{Kind: KindSequence, Indicator: SEP} }

// Op wraps an operator.
func Op(op Operator) Token { return Token{Kind: KindOperator, Op: op} }

// Feature references a named input series.
func Feature(name string) Token { return Token{Kind: KindFeature, Feature: name} }

// Const is a scalar literal.
func Const(v float64) Token { return Token{Kind: KindConstant, Const: v} }

// DeltaTime is a rolling-window length in periods.
func DeltaTime(days int) Token { return Token{Kind: KindDeltaTime, DeltaTime: days} }

// IsSep reports whether t is the separator/end marker.
func (t Token) IsSep() bool { return t.Kind == KindSequence && t.Indicator == SEP }

func (t Token) String() string {
	switch t.Kind {
	case KindSequence:
		if t.Indicator == SEP {
			return "SEP"
		}
		return "BEG"
	case KindOperator:
		return t.Op.Name
	case KindFeature:
		return "$" + t.Feature
	case KindConstant:
		return strconv.FormatFloat(t.Const, 'g', -1, 64)
	case KindDeltaTime:
		return strconv.Itoa(t.DeltaTime) + "d"
	default:
		return "?"
	}
}
