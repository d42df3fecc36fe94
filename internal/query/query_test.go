package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/awick/atompress/internal/atomdoc"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleDoc() *atomdoc.Document {
	return &atomdoc.Document{
		ID:        "urn:uuid:1",
		Title:     "Trip Report",
		Published: day(2024, 3, 10),
		Updated:   day(2024, 3, 12),
		Author:    &atomdoc.Person{Name: "Ana", Email: "ana@example.com"},
		Categories: []atomdoc.Category{
			{Term: "travel", Scheme: "http://example.com/tags"},
			{Term: "draft"},
		},
		Links: []atomdoc.Link{
			{Rel: "alternate", Href: "http://example.com/trip"},
			{Rel: "edit", Href: "trip-report"},
		},
		Content: &atomdoc.Content{Type: "text", Body: "We went to the Coast."},
	}
}

func TestMatchText(t *testing.T) {
	// Lowercase pattern: case-insensitive substring.
	assert.True(t, MatchText("Hello World", "hello"))
	assert.True(t, MatchText("Hello World", "o w"))
	assert.False(t, MatchText("Hello World", "nope"))

	// Mixed case: exact-case with wildcards.
	assert.True(t, MatchText("Hello World", "Hello"))
	assert.False(t, MatchText("hello world", "Hello"))
	assert.True(t, MatchText("Hello World", "H*World"))
	assert.True(t, MatchText("Hello World", "W?rld"))
	assert.False(t, MatchText("Hello World", "W?rldX"))
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{From: day(2024, 3, 1), To: day(2024, 3, 31)}
	assert.True(t, r.Contains(day(2024, 3, 1)))
	assert.True(t, r.Contains(day(2024, 3, 31).Add(23*time.Hour)))
	assert.False(t, r.Contains(day(2024, 2, 29)))
	assert.False(t, r.Contains(day(2024, 4, 1)))
	assert.False(t, r.Contains(time.Time{}), "zero time never matches a bounded range")

	open := DateRange{From: day(2024, 3, 1)}
	assert.True(t, open.Contains(day(2030, 1, 1)))
}

func TestQueryIsEmpty(t *testing.T) {
	assert.True(t, Query{}.IsEmpty())
	assert.False(t, Query{Text: "x"}.IsEmpty())
	assert.False(t, Query{Categories: AnyScheme("t")}.IsEmpty())
}

func TestQueryMatches(t *testing.T) {
	doc := sampleDoc()

	assert.True(t, Query{}.Matches(doc))
	assert.True(t, Query{Text: "coast"}.Matches(doc))
	assert.False(t, Query{Text: "mountain"}.Matches(doc))
	assert.True(t, Query{Author: "ana"}.Matches(doc))
	assert.False(t, Query{Author: "bob"}.Matches(doc))
	assert.True(t, Query{Updated: DateRange{From: day(2024, 3, 11)}}.Matches(doc))
	assert.False(t, Query{Published: DateRange{To: day(2024, 3, 9)}}.Matches(doc))
	assert.True(t, Query{Links: map[string]string{"edit": "trip-report"}}.Matches(doc))
	assert.False(t, Query{Links: map[string]string{"edit": "other"}}.Matches(doc))
}

func TestQueryMatchesConjoinsClauses(t *testing.T) {
	doc := sampleDoc()
	q := Query{Text: "coast", Author: "bob"}
	assert.False(t, q.Matches(doc), "one failing clause fails the query")
}

func TestCategoryTerm(t *testing.T) {
	cats := sampleDoc().Categories

	assert.True(t, AnyScheme("travel").Matches(cats))
	assert.True(t, AnyScheme("draft").Matches(cats))
	assert.False(t, AnyScheme("food").Matches(cats))

	assert.True(t, InScheme("http://example.com/tags", "travel").Matches(cats))
	assert.False(t, InScheme("http://other.com", "travel").Matches(cats))

	// Empty scheme requires the category to carry no scheme.
	assert.True(t, InScheme("", "draft").Matches(cats))
	assert.False(t, InScheme("", "travel").Matches(cats))
}

func TestCategoryBoolean(t *testing.T) {
	cats := sampleDoc().Categories

	assert.False(t, Not{AnyScheme("travel")}.Matches(cats))
	assert.True(t, Not{AnyScheme("food")}.Matches(cats))

	assert.True(t, And{AnyScheme("travel"), AnyScheme("draft")}.Matches(cats))
	assert.False(t, And{AnyScheme("travel"), AnyScheme("food")}.Matches(cats))

	assert.True(t, Or{AnyScheme("food"), AnyScheme("draft")}.Matches(cats))
	assert.False(t, Or{AnyScheme("food"), AnyScheme("wine")}.Matches(cats))

	assert.True(t, And{}.Matches(cats))
	assert.True(t, Or{}.Matches(cats))
}
