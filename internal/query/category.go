package query

import "github.com/awick/atompress/internal/atomdoc"

// CategoryExpr is a boolean expression over an entry's categories.
type CategoryExpr interface {
	// Matches evaluates the expression against an entry's category set.
	Matches(cats []atomdoc.Category) bool
}

// Term matches entries carrying a category with the given term. Scheme is
// three-valued: nil accepts any scheme, a pointer to the empty string
// requires the category to have no scheme, anything else requires an
// exact scheme match.
type Term struct {
	Scheme *string
	Term   string
}

// AnyScheme builds a Term matching the given term under any scheme.
func AnyScheme(term string) Term { return Term{Term: term} }

// InScheme builds a Term requiring an exact scheme ("" means no scheme).
func InScheme(scheme, term string) Term { return Term{Scheme: &scheme, Term: term} }

// Matches implements CategoryExpr.
func (t Term) Matches(cats []atomdoc.Category) bool {
	for _, c := range cats {
		if c.Term != t.Term {
			continue
		}
		if t.Scheme == nil || c.Scheme == *t.Scheme {
			return true
		}
	}
	return false
}

// Not negates an expression.
type Not struct {
	Expr CategoryExpr
}

// Matches implements CategoryExpr.
func (n Not) Matches(cats []atomdoc.Category) bool {
	return !n.Expr.Matches(cats)
}

// And conjoins expressions.
type And []CategoryExpr

// Matches implements CategoryExpr.
func (a And) Matches(cats []atomdoc.Category) bool {
	for _, e := range a {
		if !e.Matches(cats) {
			return false
		}
	}
	return true
}

// Or disjoins expressions.
type Or []CategoryExpr

// Matches implements CategoryExpr.
func (o Or) Matches(cats []atomdoc.Category) bool {
	for _, e := range o {
		if e.Matches(cats) {
			return true
		}
	}
	return len(o) == 0
}
