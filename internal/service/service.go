// Package service binds slugs to documents and coordinates the store and
// index so every mutation follows the publishing protocol's ordering
// contracts.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/index"
	"github.com/awick/atompress/internal/query"
	"github.com/awick/atompress/internal/store"
)

// Service coordinates store and index operations.
type Service struct {
	store  *store.Store
	idx    index.Index
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service using the real clock.
func New(st *store.Store, idx index.Index, logger *slog.Logger) *Service {
	return NewWithClock(st, idx, logger, time.Now)
}

// NewWithClock creates a Service with an injected time source, used for
// the app-level clock option and deterministic tests.
func NewWithClock(st *store.Store, idx index.Index, logger *slog.Logger, now func() time.Time) *Service {
	return &Service{store: st, idx: idx, logger: logger, now: now}
}

// GetEntry loads the entry stored under slug.
func (s *Service) GetEntry(_ context.Context, slug string) (*atomdoc.Document, error) {
	return s.store.GetEntry(slug)
}

// CreateEntry assigns a slug (honoring suggestSlug when possible) and
// persists doc, returning the slug and the document as stored.
func (s *Service) CreateEntry(_ context.Context, doc *atomdoc.Document, suggestSlug string) (string, *atomdoc.Document, error) {
	slug, err := s.store.CreateSlug(suggestSlug, store.KindEntry, "")
	if err != nil {
		return "", nil, err
	}
	doc, err = s.saveEntry(slug, doc, true)
	if err != nil {
		return "", nil, err
	}
	return slug, doc, nil
}

// UpdateEntry overwrites an existing entry.
func (s *Service) UpdateEntry(_ context.Context, slug string, doc *atomdoc.Document) (*atomdoc.Document, error) {
	if _, err := s.store.GetEntry(slug); err != nil {
		return nil, err
	}
	return s.saveEntry(slug, doc, false)
}

// saveEntry runs the save protocol. The ordering is load-bearing: the
// index sees the final document (after the rewrite hook) before the
// durable write, so index-side transformations are reflected in storage.
func (s *Service) saveEntry(slug string, doc *atomdoc.Document, created bool) (*atomdoc.Document, error) {
	doc.MakeID()
	doc.TouchEdited(s.now())
	if doc.Updated.IsZero() {
		doc.Updated = doc.Edited
	}
	doc.SetEditLink(slug)

	rewritten, err := s.idx.RewriteEntry(slug, doc)
	if err != nil {
		return nil, err
	}
	if rewritten != nil {
		doc = rewritten
	}

	notify := s.idx.EntryUpdated
	if created {
		notify = s.idx.EntryAdded
	}
	if err := notify(slug, doc); err != nil {
		return nil, err
	}

	if err := s.store.SaveEntry(slug, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteEntry removes an entry and cascades to any media it owns.
func (s *Service) DeleteEntry(_ context.Context, slug string) error {
	return s.deleteEntry(slug, true)
}

// deleteEntry notifies the index before removing physical storage, so the
// index can still read current fields during cleanup, then cascades to
// owned media. deleteMedia breaks the entry<->media deletion cycle.
func (s *Service) deleteEntry(slug string, deleteMedia bool) error {
	doc, err := s.store.GetEntry(slug)
	if err != nil {
		return err
	}
	if err := s.idx.EntryDeleted(slug, doc); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(slug); err != nil {
		return err
	}
	if !deleteMedia {
		return nil
	}
	for _, link := range doc.LinksByRel("edit-media") {
		mediaSlug := mediaSlugFromHref(link.Href)
		if mediaSlug == "" {
			continue
		}
		owner, err := s.store.MediaEntry(mediaSlug)
		if err != nil || owner != slug {
			continue
		}
		if err := s.deleteMedia(mediaSlug, false); err != nil {
			s.logger.Warn("cascade media delete failed",
				slog.String("entry", slug),
				slog.String("media", mediaSlug),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// mediaSlugFromHref extracts the media slug from an edit-media href.
func mediaSlugFromHref(href string) string {
	pos := strings.Index(href, "media/")
	if pos < 0 {
		return ""
	}
	return href[pos+len("media/"):]
}

// CreateMedia stores a new media blob and its wrapper entry, per the
// publishing protocol: the wrapper carries the out-of-line content and
// the rel=edit-media link, and the blob records the wrapper as owner.
func (s *Service) CreateMedia(ctx context.Context, r io.Reader, contentType, suggestSlug string) (entrySlug, mediaSlug string, doc *atomdoc.Document, err error) {
	ext := store.ExtForContentType(contentType)
	mediaSlug, err = s.store.CreateSlug(suggestSlug, store.KindMedia, ext)
	if err != nil {
		return "", "", nil, err
	}
	if err = s.store.SaveMedia(mediaSlug, r, contentType); err != nil {
		return "", "", nil, err
	}

	title := suggestSlug
	if title == "" {
		if _, sub, ok := strings.Cut(contentType, "/"); ok {
			title = sub
		} else {
			title = contentType
		}
	}
	wrapper := &atomdoc.Document{
		Title:   title,
		Updated: s.now().UTC(),
		Content: &atomdoc.Content{Type: contentType, Src: "media/" + mediaSlug},
		Links:   []atomdoc.Link{{Rel: "edit-media", Href: "media/" + mediaSlug}},
	}
	entrySlug, doc, err = s.CreateEntry(ctx, wrapper, mediaSlug)
	if err != nil {
		return "", "", nil, err
	}
	if err = s.store.SetMediaEntry(mediaSlug, entrySlug); err != nil {
		return "", "", nil, err
	}
	return entrySlug, mediaSlug, doc, nil
}

// UpdateMedia overwrites a media blob and refreshes the owning entry's
// edited timestamp, if any.
func (s *Service) UpdateMedia(_ context.Context, slug string, r io.Reader, contentType string) error {
	if _, err := s.store.MediaPath(slug); err != nil {
		return err
	}
	if err := s.store.SaveMedia(slug, r, contentType); err != nil {
		return err
	}
	owner, err := s.store.MediaEntry(slug)
	if err != nil || owner == "" {
		return err
	}
	doc, err := s.store.GetEntry(owner)
	if err != nil {
		return fmt.Errorf("service: refresh owner of %s: %w", slug, err)
	}
	_, err = s.saveEntry(owner, doc, false)
	return err
}

// DeleteMedia removes a media blob and its wrapper entry.
func (s *Service) DeleteMedia(_ context.Context, slug string) error {
	return s.deleteMedia(slug, true)
}

func (s *Service) deleteMedia(slug string, deleteEntry bool) error {
	if deleteEntry {
		owner, err := s.store.MediaEntry(slug)
		if err != nil {
			return err
		}
		if owner != "" && s.store.EntryExists(owner) {
			if err := s.deleteEntry(owner, false); err != nil {
				return err
			}
		}
	}
	return s.store.DeleteMedia(slug)
}

// Query resolves q through the index, finishing any residual part by
// loading candidate documents and filtering in memory.
func (s *Service) Query(_ context.Context, q query.Query) ([]string, error) {
	residual, slugs, err := s.idx.Query(q)
	if err != nil {
		return nil, err
	}
	if residual == nil || residual.IsEmpty() {
		return slugs, nil
	}
	var out []string
	for _, sl := range slugs {
		doc, err := s.store.GetEntry(sl)
		if err != nil {
			s.logger.Warn("query: load failed", slog.String("slug", sl), slog.String("error", err.Error()))
			continue
		}
		if residual.Matches(doc) {
			out = append(out, sl)
		}
	}
	return out, nil
}

// Reindex rebuilds the index projection from the store.
func (s *Service) Reindex(_ context.Context) error {
	return index.Reindex(s.idx, s.store, s.logger)
}

// Clear empties the collection: the index is notified before the files
// go away.
func (s *Service) Clear(_ context.Context) error {
	if err := s.idx.Clear(); err != nil {
		return err
	}
	return s.store.Clear()
}

// EntryETag returns the entry's advisory entity tag.
func (s *Service) EntryETag(slug string) (string, error) {
	return s.store.ETag(slug, store.KindEntry)
}

// EntryLastModified returns the entry's modification time.
func (s *Service) EntryLastModified(slug string) (time.Time, error) {
	return s.store.LastModified(slug, store.KindEntry)
}

// MediaETag returns the media blob's advisory entity tag.
func (s *Service) MediaETag(slug string) (string, error) {
	return s.store.ETag(slug, store.KindMedia)
}

// MediaLastModified returns the media blob's modification time.
func (s *Service) MediaLastModified(slug string) (time.Time, error) {
	return s.store.LastModified(slug, store.KindMedia)
}

// MediaPath returns the blob path for serving.
func (s *Service) MediaPath(slug string) (string, error) {
	return s.store.MediaPath(slug)
}

// MediaContentType returns the blob's recorded content type.
func (s *Service) MediaContentType(slug string) (string, error) {
	return s.store.MediaContentType(slug)
}

// FeedUpdated returns the collection's most recent modification time.
func (s *Service) FeedUpdated() time.Time {
	return s.store.MostRecent()
}
