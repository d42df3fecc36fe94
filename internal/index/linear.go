package index

import (
	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/query"
)

// Linear is the stateless index: it keeps no projection and delegates
// all filtering back to the caller. Every query is a full collection
// scan, which is fine for small stores and serves as the reference
// semantics for richer variants.
type Linear struct {
	src EntrySource
}

// NewLinear creates a linear index over src.
func NewLinear(src EntrySource) *Linear {
	return &Linear{src: src}
}

// RewriteEntry keeps the document unchanged.
func (l *Linear) RewriteEntry(string, *atomdoc.Document) (*atomdoc.Document, error) {
	return nil, nil
}

// EntryAdded is a no-op; the store listing is the index.
func (l *Linear) EntryAdded(string, *atomdoc.Document) error { return nil }

// EntryUpdated is a no-op.
func (l *Linear) EntryUpdated(string, *atomdoc.Document) error { return nil }

// EntryDeleted is a no-op.
func (l *Linear) EntryDeleted(string, *atomdoc.Document) error { return nil }

// Clear is a no-op.
func (l *Linear) Clear() error { return nil }

// Query returns every slug and the untouched query as residual: the
// caller must post-filter each candidate document itself.
func (l *Linear) Query(q query.Query) (*query.Query, []string, error) {
	slugs, err := l.src.EntrySlugs()
	if err != nil {
		return nil, nil, err
	}
	return &q, slugs, nil
}

// MostRecent slices the store's natural most-recent-first order.
func (l *Linear) MostRecent(startIndex, length int) (int, []string, error) {
	slugs, err := l.src.EntrySlugs()
	if err != nil {
		return 0, nil, err
	}
	total := len(slugs)
	if startIndex >= total {
		return total, nil, nil
	}
	slugs = slugs[startIndex:]
	if length >= 0 && length < len(slugs) {
		slugs = slugs[:length]
	}
	return total, slugs, nil
}

// Categories accepts any category.
func (l *Linear) Categories() []atomdoc.Category { return nil }

// AcceptMedia accepts any media type.
func (l *Linear) AcceptMedia() []string { return nil }

// Close is a no-op.
func (l *Linear) Close() error { return nil }
