// Package feed turns index listings into ordered pages with
// first/previous/next/last navigation.
package feed

import (
	"fmt"

	"github.com/awick/atompress/internal/apperr"
)

// MostRecenter is the slice of the index the paginator needs.
type MostRecenter interface {
	MostRecent(startIndex, length int) (total int, slugs []string, err error)
}

// Page is one window of the collection. Total is -1 when the provider
// could not count the collection.
type Page struct {
	Slugs      []string
	Total      int
	StartIndex int
	PageSize   int

	hasNext bool
}

// Paginate fetches the page at startIndex from idx. maxResults 0 selects
// defaultPageSize. Negative inputs are a client error, rejected before
// the index is consulted.
func Paginate(idx MostRecenter, startIndex, maxResults, defaultPageSize int) (*Page, error) {
	pageSize, err := resolve(startIndex, maxResults, defaultPageSize)
	if err != nil {
		return nil, err
	}
	total, slugs, err := idx.MostRecent(startIndex, pageSize)
	if err != nil {
		return nil, err
	}
	return newPage(slugs, total, startIndex, pageSize), nil
}

// PageOf windows an already-resolved slug list (a query result). The
// total is always known here.
func PageOf(slugs []string, startIndex, maxResults, defaultPageSize int) (*Page, error) {
	pageSize, err := resolve(startIndex, maxResults, defaultPageSize)
	if err != nil {
		return nil, err
	}
	total := len(slugs)
	var window []string
	if startIndex < total {
		window = slugs[startIndex:]
		if pageSize < len(window) {
			window = window[:pageSize]
		}
	}
	return newPage(window, total, startIndex, pageSize), nil
}

func resolve(startIndex, maxResults, defaultPageSize int) (int, error) {
	if startIndex < 0 {
		return 0, fmt.Errorf("feed: start index %d: %w", startIndex, apperr.ErrInvalidQuery)
	}
	if maxResults < 0 {
		return 0, fmt.Errorf("feed: max results %d: %w", maxResults, apperr.ErrInvalidQuery)
	}
	if maxResults == 0 {
		maxResults = defaultPageSize
	}
	return maxResults, nil
}

func newPage(slugs []string, total, startIndex, pageSize int) *Page {
	p := &Page{
		Slugs:      slugs,
		Total:      total,
		StartIndex: startIndex,
		PageSize:   pageSize,
	}
	if total >= 0 {
		p.hasNext = startIndex+len(slugs) < total
	} else {
		// Unknown total: a full page suggests more beyond it.
		p.hasNext = len(slugs) == pageSize
	}
	return p
}

// First returns the offset of the first page, present when this page is
// not already the first.
func (p *Page) First() (int, bool) {
	if p.StartIndex == 0 {
		return 0, false
	}
	return 0, true
}

// Previous returns the offset of the preceding page.
func (p *Page) Previous() (int, bool) {
	if p.StartIndex == 0 {
		return 0, false
	}
	prev := p.StartIndex - p.PageSize
	if prev < 0 {
		prev = 0
	}
	return prev, true
}

// Next returns the offset of the following page.
func (p *Page) Next() (int, bool) {
	if !p.hasNext {
		return 0, false
	}
	return p.StartIndex + p.PageSize, true
}

// Last returns the offset of the final page: the largest multiple of the
// page size strictly below the total. Absent when the total is unknown or
// the collection fits in one page.
func (p *Page) Last() (int, bool) {
	if p.Total < 0 || p.Total <= p.PageSize {
		return 0, false
	}
	return (p.Total - 1) / p.PageSize * p.PageSize, true
}
