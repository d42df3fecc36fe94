package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awick/atompress/internal/apperr"
)

// fakeIndex serves a fixed ordered slug list.
type fakeIndex struct {
	slugs []string
	// total overrides len(slugs) when set; -1 simulates an index that
	// cannot count.
	total *int
}

func (f *fakeIndex) MostRecent(startIndex, length int) (int, []string, error) {
	total := len(f.slugs)
	if f.total != nil {
		total = *f.total
	}
	if startIndex >= len(f.slugs) {
		return total, nil, nil
	}
	window := f.slugs[startIndex:]
	if length >= 0 && length < len(window) {
		window = window[:length]
	}
	return total, window, nil
}

func slugs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("entry-%02d", i)
	}
	return out
}

func TestPaginateFirstPage(t *testing.T) {
	idx := &fakeIndex{slugs: slugs(25)}
	p, err := Paginate(idx, 0, 0, 10)
	require.NoError(t, err)

	assert.Len(t, p.Slugs, 10)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, "entry-00", p.Slugs[0])

	_, ok := p.First()
	assert.False(t, ok, "first page links to no first")
	_, ok = p.Previous()
	assert.False(t, ok)
	next, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 10, next)
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 20, last)
}

func TestPaginateLastPartialPage(t *testing.T) {
	idx := &fakeIndex{slugs: slugs(25)}
	p, err := Paginate(idx, 20, 0, 10)
	require.NoError(t, err)

	assert.Len(t, p.Slugs, 5)

	first, ok := p.First()
	require.True(t, ok)
	assert.Equal(t, 0, first)
	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, 10, prev)
	_, ok = p.Next()
	assert.False(t, ok, "no page beyond the end")
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 20, last)
}

func TestPaginatePastEnd(t *testing.T) {
	idx := &fakeIndex{slugs: slugs(5)}
	p, err := Paginate(idx, 100, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Slugs)
	_, ok := p.Next()
	assert.False(t, ok)
}

func TestPaginateExplicitMaxResults(t *testing.T) {
	idx := &fakeIndex{slugs: slugs(25)}
	p, err := Paginate(idx, 0, 7, 10)
	require.NoError(t, err)
	assert.Len(t, p.Slugs, 7)
	next, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 7, next)
}

func TestPaginateRejectsNegatives(t *testing.T) {
	idx := &fakeIndex{slugs: slugs(5)}
	_, err := Paginate(idx, -1, 0, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)
	_, err = Paginate(idx, 0, -1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)
}

func TestPaginateUnknownTotal(t *testing.T) {
	unknown := -1
	idx := &fakeIndex{slugs: slugs(20), total: &unknown}

	p, err := Paginate(idx, 0, 10, 10)
	require.NoError(t, err)
	_, ok := p.Next()
	assert.True(t, ok, "full page implies a next page when total is unknown")
	_, ok = p.Last()
	assert.False(t, ok, "no last link without a total")

	p, err = Paginate(idx, 15, 10, 10)
	require.NoError(t, err)
	_, ok = p.Next()
	assert.False(t, ok, "short page ends the walk")
}

func TestPageOf(t *testing.T) {
	all := slugs(12)
	p, err := PageOf(all, 10, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-10", "entry-11"}, p.Slugs)
	assert.Equal(t, 12, p.Total)
	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, 5, prev)
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 10, last)
}

func TestPageOfWithinSinglePage(t *testing.T) {
	p, err := PageOf(slugs(3), 0, 0, 10)
	require.NoError(t, err)
	assert.Len(t, p.Slugs, 3)
	_, ok := p.Next()
	assert.False(t, ok)
	_, ok = p.Last()
	assert.False(t, ok, "single-page collections have no last link")
}
