// Package expr holds alpha expression trees and the incremental Builder that
// assembles them token by token while enforcing the typed grammar.
package expr

import (
	"errors"
	"strconv"
	"strings"

	"alphacore/internal/token"
)

// ErrOutOfDataRange is returned by scorers when an expression needs data
// outside the loaded window (e.g. a lookback longer than the history).
// Construction treats it as a recoverable "no signal" outcome.
var ErrOutOfDataRange = errors.New("expr: evaluation out of data range")

// NodeKind tags the node variant.
type NodeKind uint8

const (
	NodeOperator NodeKind = iota
	NodeFeature
	NodeConstant
	NodeDeltaTime
)

// Node is one vertex of an expression tree. Operator nodes carry exactly
// Op.Category.Arity() children once the tree is complete.
type Node struct {
	Kind      NodeKind
	Op        token.Operator
	Feature   string
	Const     float64
	DeltaTime int
	Children  []*Node
}

func nodeFromToken(tok token.Token) *Node {
	switch tok.Kind {
	case token.KindOperator:
		return &Node{Kind: NodeOperator, Op: tok.Op, Children: make([]*Node, 0, tok.Op.Category.Arity())}
	case token.KindFeature:
		return &Node{Kind: NodeFeature, Feature: tok.Feature}
	case token.KindConstant:
		return &Node{Kind: NodeConstant, Const: tok.Const}
	case token.KindDeltaTime:
		return &Node{Kind: NodeDeltaTime, DeltaTime: tok.DeltaTime}
	}
	return nil
}

// IsFeatured reports whether the node's value depends on market data, as
// opposed to being a pure literal.
func (n *Node) IsFeatured() bool {
	switch n.Kind {
	case NodeFeature:
		return true
	case NodeOperator:
		for _, c := range n.Children {
			if c.IsFeatured() {
				return true
			}
		}
	}
	return false
}

// String renders the tree in call notation, e.g. Mean(Add($close,1),20d).
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b, false)
	return b.String()
}

// Fingerprint is the canonical identity used for deduplication.
func (n *Node) Fingerprint() string { return n.String() }

// Skeleton renders the structure with literals erased, so expressions that
// only differ in constants or window lengths share a skeleton.
func (n *Node) Skeleton() string {
	var b strings.Builder
	n.write(&b, true)
	return b.String()
}

func (n *Node) write(b *strings.Builder, skeleton bool) {
	switch n.Kind {
	case NodeFeature:
		b.WriteString("$" + n.Feature)
	case NodeConstant:
		if skeleton {
			b.WriteString("C")
			return
		}
		b.WriteString(strconv.FormatFloat(n.Const, 'g', -1, 64))
	case NodeDeltaTime:
		if skeleton {
			b.WriteString("DT")
			return
		}
		b.WriteString(strconv.Itoa(n.DeltaTime) + "d")
	case NodeOperator:
		b.WriteString(n.Op.Name)
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.write(b, skeleton)
		}
		b.WriteByte(')')
	}
}

// Size returns the number of nodes in the tree.
func (n *Node) Size() int {
	s := 1
	for _, c := range n.Children {
		s += c.Size()
	}
	return s
}

// Depth returns the height of the tree; a single leaf has depth 1.
func (n *Node) Depth() int {
	d := 0
	for _, c := range n.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Tokens flattens the tree back into its prefix token sequence.
func (n *Node) Tokens() []token.Token {
	var out []token.Token
	var walk func(*Node)
	walk = func(x *Node) {
		switch x.Kind {
		case NodeOperator:
			out = append(out, token.Op(x.Op))
		case NodeFeature:
			out = append(out, token.Feature(x.Feature))
		case NodeConstant:
			out = append(out, token.Const(x.Const))
		case NodeDeltaTime:
			out = append(out, token.DeltaTime(x.DeltaTime))
		}
		for _, c := range x.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}
