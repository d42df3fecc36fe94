// Package index defines the pluggable secondary index attached to the
// store, with a stateless linear variant and a SQLite-backed projection.
package index

import (
	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/query"
)

// Index observes store mutations and answers feed and query requests.
// Consumers depend on this interface rather than a concrete variant so
// implementations can be swapped through configuration.
type Index interface {
	// RewriteEntry may transform the document before it is indexed and
	// persisted; the slug cannot change. Returning nil keeps the input.
	RewriteEntry(slug string, doc *atomdoc.Document) (*atomdoc.Document, error)

	// EntryAdded is called after the slug is finalized, before the write
	// is considered durable.
	EntryAdded(slug string, doc *atomdoc.Document) error
	// EntryUpdated is called on every overwrite of an existing entry.
	EntryUpdated(slug string, doc *atomdoc.Document) error
	// EntryDeleted is called before physical removal; doc may be nil
	// when the entry could not be loaded.
	EntryDeleted(slug string, doc *atomdoc.Document) error
	// Clear is called before the store is emptied.
	Clear() error

	// Query returns the slugs matching q plus the residual query the
	// caller must still evaluate against loaded documents (nil when the
	// index resolved everything).
	Query(q query.Query) (*query.Query, []string, error)

	// MostRecent returns the total entry count and the slice of slugs at
	// [startIndex, startIndex+length), ordered newest first. A negative
	// length means unlimited. A total of -1 means unknown.
	MostRecent(startIndex, length int) (int, []string, error)

	// Categories lists the categories this collection accepts, or nil
	// when unrestricted.
	Categories() []atomdoc.Category
	// AcceptMedia lists accepted media types, or nil when unrestricted.
	AcceptMedia() []string

	Close() error
}

// EntrySource is the view of the store an index needs for scanning and
// rebuilds.
type EntrySource interface {
	EntrySlugs() ([]string, error)
	GetEntry(slug string) (*atomdoc.Document, error)
}

// Compile-time interface checks.
var (
	_ Index = (*Linear)(nil)
	_ Index = (*SQLite)(nil)
)
