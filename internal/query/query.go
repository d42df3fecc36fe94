// Package query defines the structured entry query consumed by index
// implementations, plus in-memory predicate evaluation for indexes that
// hand a residual query back to the caller.
package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/awick/atompress/internal/atomdoc"
)

// DateRange bounds a timestamp field; zero values leave an end open.
// Comparison is at day granularity.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether both ends are open.
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains reports whether t falls inside the range. A zero t never
// matches a bounded range.
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return r.IsZero()
	}
	day := t.UTC().Format("2006-01-02")
	if !r.From.IsZero() && day < r.From.UTC().Format("2006-01-02") {
		return false
	}
	if !r.To.IsZero() && day > r.To.UTC().Format("2006-01-02") {
		return false
	}
	return true
}

// Query is an immutable filter specification. The zero Query matches
// every entry. Indexes that resolve only part of a query return the
// unresolved remainder as a new value; a Query is never mutated to mark
// fields consumed.
type Query struct {
	// Text is matched against the entry's full serialized text.
	Text string
	// Author is matched against the concatenated author name/email/uri.
	Author string
	// Updated and Published bound the respective timestamps.
	Updated   DateRange
	Published DateRange
	// Categories is a boolean expression over the entry's categories.
	Categories CategoryExpr
	// Links requires, for each rel, a link with exactly that href.
	Links map[string]string
}

// IsEmpty reports whether the query matches everything.
func (q Query) IsEmpty() bool {
	return q.Text == "" && q.Author == "" &&
		q.Updated.IsZero() && q.Published.IsZero() &&
		q.Categories == nil && len(q.Links) == 0
}

// Matches evaluates the query against a loaded document. All clauses are
// conjoined; an empty query matches everything.
func (q Query) Matches(doc *atomdoc.Document) bool {
	if q.Text != "" && !MatchText(doc.FullText(), q.Text) {
		return false
	}
	if q.Author != "" && !MatchText(doc.Author.Full(), q.Author) {
		return false
	}
	if !q.Updated.IsZero() && !q.Updated.Contains(doc.Updated) {
		return false
	}
	if !q.Published.IsZero() && !q.Published.Contains(doc.Published) {
		return false
	}
	if q.Categories != nil && !q.Categories.Matches(doc.Categories) {
		return false
	}
	for rel, href := range q.Links {
		found := false
		for _, l := range doc.LinksByRel(rel) {
			if l.Href == href {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MatchText applies the free-text matching heuristic: an all-lowercase
// pattern is a case-insensitive substring match; anything else is a
// case-sensitive match with * and ? wildcards.
func MatchText(text, pattern string) bool {
	if strings.ToLower(pattern) == pattern {
		return strings.Contains(strings.ToLower(text), pattern)
	}
	return globContains(text, pattern)
}

// globContains reports whether pattern (with * and ? wildcards) occurs
// anywhere in text, case-sensitively.
func globContains(text, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?s)")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
