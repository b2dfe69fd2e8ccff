package env

import (
	"alphacore/internal/expr"
	"alphacore/internal/token"
)

// Report lists the token categories that may legally come next. It is
// derived from builder state on every call and never cached.
type Report struct {
	Op        bool
	Feature   bool
	Const     bool
	DeltaTime bool
	Stop      bool
	Ops       [token.NumCategories]bool
}

func reportFor(b *expr.Builder) Report {
	var r Report
	for _, cat := range token.Categories {
		r.Ops[cat] = b.ValidateOp(cat)
		r.Op = r.Op || r.Ops[cat]
	}
	r.Feature = b.ValidateFeaturedExpr()
	r.Const = b.ValidateConst()
	r.DeltaTime = b.ValidateDeltaTime()
	r.Stop = b.IsValid()
	return r
}

// Select returns the five headline flags in order:
// op, feature, constant, delta time, stop.
func (r Report) Select() [5]bool {
	return [5]bool{r.Op, r.Feature, r.Const, r.DeltaTime, r.Stop}
}

// Allows reports whether tok is legal under r. SEP is allowed only once the
// expression is complete.
func (r Report) Allows(tok token.Token) bool {
	switch tok.Kind {
	case token.KindOperator:
		return int(tok.Op.Category) < len(r.Ops) && r.Ops[tok.Op.Category]
	case token.KindFeature:
		return r.Feature
	case token.KindConstant:
		return r.Const
	case token.KindDeltaTime:
		return r.DeltaTime
	case token.KindSequence:
		return tok.IsSep() && r.Stop
	}
	return false
}

// Any reports whether at least one action is legal.
func (r Report) Any() bool {
	return r.Op || r.Feature || r.Const || r.DeltaTime || r.Stop
}
