package expr

import (
	"errors"
	"fmt"

	"alphacore/internal/token"
)

var (
	// ErrInvalidToken is returned by AddToken when the token cannot fill the
	// currently open slot. The builder state is unchanged.
	ErrInvalidToken = errors.New("expr: token not valid here")
	// ErrIncomplete is returned by Tree while operator slots remain open.
	ErrIncomplete = errors.New("expr: expression incomplete")
)

// Grammar bounds the size of constructed expressions. Zero disables a bound.
type Grammar struct {
	MaxTokens int // body tokens, excluding sequence markers
	MaxDepth  int // tree height, root = 1
}

// slotKind is what the next open operand position accepts.
type slotKind uint8

const (
	slotFeatured  slotKind = iota // operator or feature
	slotOperand                   // operator, feature or constant
	slotDeltaTime                 // delta time literal only
)

func (s slotKind) String() string {
	switch s {
	case slotFeatured:
		return "featured"
	case slotOperand:
		return "operand"
	default:
		return "delta_time"
	}
}

type frame struct {
	node  *Node
	depth int
}

// Builder assembles an expression from tokens in prefix order: an operator
// opens Arity() child slots, an operand fills one. It tracks which token
// categories may legally come next.
//
// Slot rules:
//   - the root slot and unary children take a featured expression
//   - binary children take a featured expression or a constant, but not two
//     constants
//   - rolling operators take (featured, delta time)
//   - pair rolling operators take (featured, featured, delta time)
//
// A Builder is single-use and not safe for concurrent use.
type Builder struct {
	grammar Grammar
	root    *Node
	stack   []frame // operators still awaiting children
	open    int     // unfilled slots across the whole tree
	used    int     // tokens accepted
}

// NewBuilder returns a builder with one open top-level slot.
func NewBuilder(g Grammar) *Builder {
	return &Builder{grammar: g, open: 1}
}

// next describes the slot the next token would fill. ok is false once the
// expression is complete.
func (b *Builder) next() (kind slotKind, depth int, ok bool) {
	if b.root == nil {
		return slotFeatured, 1, true
	}
	if len(b.stack) == 0 {
		return 0, 0, false
	}
	top := b.stack[len(b.stack)-1]
	i := len(top.node.Children)
	depth = top.depth + 1

	switch top.node.Op.Category {
	case token.Unary:
		return slotFeatured, depth, true
	case token.Binary:
		if i == 1 && !top.node.Children[0].IsFeatured() {
			return slotFeatured, depth, true
		}
		return slotOperand, depth, true
	case token.Rolling:
		if i == 1 {
			return slotDeltaTime, depth, true
		}
		return slotFeatured, depth, true
	case token.PairRolling:
		if i == 2 {
			return slotDeltaTime, depth, true
		}
		return slotFeatured, depth, true
	}
	return 0, 0, false
}

func accepts(slot slotKind, tok token.Token) bool {
	switch tok.Kind {
	case token.KindOperator, token.KindFeature:
		return slot != slotDeltaTime
	case token.KindConstant:
		return slot == slotOperand
	case token.KindDeltaTime:
		return slot == slotDeltaTime
	}
	return false
}

// AddToken applies tok to the partial expression. It fails with
// ErrInvalidToken if tok cannot fill the open slot by type; the length and
// depth budgets are advisory and only enforced through the Validate methods.
func (b *Builder) AddToken(tok token.Token) error {
	slot, depth, ok := b.next()
	if !ok {
		return fmt.Errorf("%w: %s after complete expression", ErrInvalidToken, tok)
	}
	if !accepts(slot, tok) {
		return fmt.Errorf("%w: %s %s in %s slot", ErrInvalidToken, tok.Kind, tok, slot)
	}

	node := nodeFromToken(tok)
	if b.root == nil {
		b.root = node
	} else {
		top := b.stack[len(b.stack)-1].node
		top.Children = append(top.Children, node)
	}
	b.used++

	if node.Kind == NodeOperator {
		b.stack = append(b.stack, frame{node: node, depth: depth})
		b.open += node.Op.Category.Arity() - 1
		return nil
	}

	b.open--
	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1].node
		if len(top.Children) < top.Op.Category.Arity() {
			break
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
	return nil
}

// ValidateOp reports whether an operator of category cat may come next:
// the open slot takes a featured expression and, after placing the operator
// and one leaf per slot, the token and depth budgets still hold.
func (b *Builder) ValidateOp(cat token.Category) bool {
	slot, depth, ok := b.next()
	if !ok || slot == slotDeltaTime {
		return false
	}
	if b.grammar.MaxTokens > 0 && b.used+b.open+cat.Arity() > b.grammar.MaxTokens {
		return false
	}
	if b.grammar.MaxDepth > 0 && depth+1 > b.grammar.MaxDepth {
		return false
	}
	return true
}

// ValidateFeaturedExpr reports whether a feature reference may come next.
func (b *Builder) ValidateFeaturedExpr() bool {
	slot, _, ok := b.next()
	return ok && slot != slotDeltaTime
}

// ValidateConst reports whether a constant may come next.
func (b *Builder) ValidateConst() bool {
	slot, _, ok := b.next()
	return ok && slot == slotOperand
}

// ValidateDeltaTime reports whether a delta time literal may come next.
func (b *Builder) ValidateDeltaTime() bool {
	slot, _, ok := b.next()
	return ok && slot == slotDeltaTime
}

// IsValid reports whether the tokens so far form a complete expression.
func (b *Builder) IsValid() bool {
	return b.root != nil && b.open == 0 && b.root.IsFeatured()
}

// Tree returns the finished expression. The returned tree is shared with the
// builder and must not be modified.
func (b *Builder) Tree() (*Node, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("%w: %d open slots", ErrIncomplete, b.open)
	}
	return b.root, nil
}

// Used returns the number of tokens accepted so far.
func (b *Builder) Used() int { return b.used }

// OpenSlots returns the number of operand positions still unfilled.
func (b *Builder) OpenSlots() int { return b.open }
