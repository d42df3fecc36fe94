package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/awick/atompress/internal/apperr"
	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/feed"
	"github.com/awick/atompress/internal/index"
	"github.com/awick/atompress/internal/service"
)

const (
	entryContentType   = "application/atom+xml; type=entry; charset=utf-8"
	feedContentType    = "application/atom+xml; charset=utf-8"
	serviceContentType = "application/atomsvc+xml; charset=utf-8"

	maxEntryBytes = 10 << 20
	maxMediaBytes = 50 << 20
)

// Handler holds the collection route handlers.
type Handler struct {
	svc      *service.Service
	idx      index.Index
	pageSize int
	title    string
}

// NewHandler creates a Handler.
func NewHandler(svc *service.Service, idx index.Index, pageSize int, title string) *Handler {
	return &Handler{svc: svc, idx: idx, pageSize: pageSize, title: title}
}

func writeAtom(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("response write failed", slog.String("error", err.Error()))
	}
}

// writeErr maps domain errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, apperr.ErrInvalidSlug), errors.Is(err, apperr.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// GetEntry handles GET /{slug}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	doc, err := h.svc.GetEntry(r.Context(), slug)
	if err != nil {
		writeErr(w, err, "get entry")
		return
	}
	etag, lastMod, ok := h.entryValidators(w, slug)
	if !ok {
		return
	}
	setValidators(w, etag, lastMod)
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}
	body, err := doc.Bytes()
	if err != nil {
		writeErr(w, err, "serialize entry")
		return
	}
	writeAtom(w, http.StatusOK, entryContentType, body)
}

// PutEntry handles PUT /{slug} with optimistic concurrency.
func (h *Handler) PutEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	etag, lastMod, ok := h.entryValidators(w, slug)
	if !ok {
		return
	}
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEntryBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	doc, err := atomdoc.Parse(data)
	if err != nil {
		http.Error(w, "invalid atom entry", http.StatusBadRequest)
		return
	}

	stored, err := h.svc.UpdateEntry(r.Context(), slug, doc)
	if err != nil {
		writeErr(w, err, "update entry")
		return
	}
	body, err := stored.Bytes()
	if err != nil {
		writeErr(w, err, "serialize entry")
		return
	}
	writeAtom(w, http.StatusOK, entryContentType, body)
}

// DeleteEntry handles DELETE /{slug}.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	etag, lastMod, ok := h.entryValidators(w, slug)
	if !ok {
		return
	}
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), slug); err != nil {
		writeErr(w, err, "delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// entryValidators fetches the entry's ETag and Last-Modified, writing the
// error response itself when the entry is gone.
func (h *Handler) entryValidators(w http.ResponseWriter, slug string) (string, time.Time, bool) {
	etag, err := h.svc.EntryETag(slug)
	if err != nil {
		writeErr(w, err, "entry etag")
		return "", time.Time{}, false
	}
	lastMod, err := h.svc.EntryLastModified(slug)
	if err != nil {
		writeErr(w, err, "entry last-modified")
		return "", time.Time{}, false
	}
	return etag, lastMod, true
}

// Create handles POST /: an Atom entry body creates an entry, anything
// else is stored as media with a generated wrapper entry. The Slug header
// seeds identifier generation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "application/octet-stream"
	}
	suggest := r.Header.Get("Slug")

	if mediaType == "application/atom+xml" {
		r.Body = http.MaxBytesReader(w, r.Body, maxEntryBytes)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		doc, err := atomdoc.Parse(data)
		if err != nil {
			http.Error(w, "invalid atom entry", http.StatusBadRequest)
			return
		}
		slug, stored, err := h.svc.CreateEntry(r.Context(), doc, suggest)
		if err != nil {
			writeErr(w, err, "create entry")
			return
		}
		h.created(w, slug, stored)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMediaBytes)
	entrySlug, _, wrapper, err := h.svc.CreateMedia(r.Context(), r.Body, contentType, suggest)
	if err != nil {
		writeErr(w, err, "create media")
		return
	}
	h.created(w, entrySlug, wrapper)
}

func (h *Handler) created(w http.ResponseWriter, slug string, doc *atomdoc.Document) {
	body, err := doc.Bytes()
	if err != nil {
		writeErr(w, err, "serialize entry")
		return
	}
	w.Header().Set("Location", slug)
	writeAtom(w, http.StatusCreated, entryContentType, body)
}

// Feed handles GET / and GET /-/{categories...}: a paginated feed of the
// most recent entries, optionally filtered by a structured query.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	q, start, max, err := parseFeedQuery(r)
	if err != nil {
		writeErr(w, err, "parse feed query")
		return
	}

	var page *feed.Page
	if q.IsEmpty() {
		page, err = feed.Paginate(h.idx, start, max, h.pageSize)
	} else {
		var slugs []string
		slugs, err = h.svc.Query(r.Context(), q)
		if err == nil {
			page, err = feed.PageOf(slugs, start, max, h.pageSize)
		}
	}
	if err != nil {
		writeErr(w, err, "feed page")
		return
	}

	f := &atomdoc.Feed{
		ID:      "urn:uuid:00000000-0000-0000-0000-000000000000",
		Title:   h.title,
		Updated: h.svc.FeedUpdated(),
		Links:   h.navLinks(r, page),
	}
	if f.Updated.IsZero() {
		f.Updated = time.Now().UTC()
	}
	for _, slug := range page.Slugs {
		doc, loadErr := h.svc.GetEntry(r.Context(), slug)
		if loadErr != nil {
			slog.Warn("feed: load entry failed", slog.String("slug", slug), slog.String("error", loadErr.Error()))
			continue
		}
		f.Entries = append(f.Entries, doc)
	}

	body, err := f.Bytes()
	if err != nil {
		writeErr(w, err, "serialize feed")
		return
	}
	writeAtom(w, http.StatusOK, feedContentType, body)
}

// navLinks builds the self/first/previous/next/last links for a page,
// preserving the request's query filters.
func (h *Handler) navLinks(r *http.Request, page *feed.Page) []atomdoc.Link {
	links := []atomdoc.Link{{Rel: "self", Href: r.URL.RequestURI()}}
	add := func(rel string, offset int) {
		links = append(links, atomdoc.Link{Rel: rel, Href: pageURL(r.URL, offset, page.PageSize)})
	}
	if off, ok := page.First(); ok {
		add("first", off)
	}
	if off, ok := page.Previous(); ok {
		add("previous", off)
	}
	if off, ok := page.Next(); ok {
		add("next", off)
	}
	if off, ok := page.Last(); ok {
		add("last", off)
	}
	return links
}

func pageURL(u *url.URL, startIndex, maxResults int) string {
	vals := u.Query()
	vals.Set("start-index", strconv.Itoa(startIndex))
	vals.Set("max-results", strconv.Itoa(maxResults))
	out := *u
	out.RawQuery = vals.Encode()
	return out.RequestURI()
}

// ServiceDoc handles GET /service.
func (h *Handler) ServiceDoc(w http.ResponseWriter, r *http.Request) {
	accepts := h.idx.AcceptMedia()
	if accepts == nil {
		accepts = []string{"*/*", "application/atom+xml;type=entry"}
	}
	acceptXML := ""
	for _, a := range accepts {
		acceptXML += fmt.Sprintf("      <accept>%s</accept>\n", a)
	}
	catsXML := ""
	if cats := h.idx.Categories(); cats != nil {
		catsXML = "      <categories fixed=\"yes\">\n"
		for _, c := range cats {
			catsXML += fmt.Sprintf("        <atom:category term=%q scheme=%q/>\n", c.Term, c.Scheme)
		}
		catsXML += "      </categories>\n"
	}
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<service xmlns="http://www.w3.org/2007/app"
         xmlns:atom="http://www.w3.org/2005/Atom">
  <workspace>
    <atom:title>%s</atom:title>
    <collection href="/">
      <atom:title>%s</atom:title>
%s%s    </collection>
  </workspace>
</service>
`, h.title, h.title, acceptXML, catsXML)
	writeAtom(w, http.StatusOK, serviceContentType, []byte(doc))
}

// GetMedia handles GET /media/{slug}.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	path, err := h.svc.MediaPath(slug)
	if err != nil {
		writeErr(w, err, "get media")
		return
	}
	etag, lastMod, ok := h.mediaValidators(w, slug)
	if !ok {
		return
	}
	setValidators(w, etag, lastMod)
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}
	if ct, ctErr := h.svc.MediaContentType(slug); ctErr == nil {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}

// PutMedia handles PUT /media/{slug}.
func (h *Handler) PutMedia(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	etag, lastMod, ok := h.mediaValidators(w, slug)
	if !ok {
		return
	}
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaBytes)
	if err := h.svc.UpdateMedia(r.Context(), slug, r.Body, r.Header.Get("Content-Type")); err != nil {
		writeErr(w, err, "update media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMedia handles DELETE /media/{slug}.
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	etag, lastMod, ok := h.mediaValidators(w, slug)
	if !ok {
		return
	}
	if status := checkPreconditions(r, etag, lastMod); status != 0 {
		w.WriteHeader(status)
		return
	}
	if err := h.svc.DeleteMedia(r.Context(), slug); err != nil {
		writeErr(w, err, "delete media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mediaValidators(w http.ResponseWriter, slug string) (string, time.Time, bool) {
	etag, err := h.svc.MediaETag(slug)
	if err != nil {
		writeErr(w, err, "media etag")
		return "", time.Time{}, false
	}
	lastMod, err := h.svc.MediaLastModified(slug)
	if err != nil {
		writeErr(w, err, "media last-modified")
		return "", time.Time{}, false
	}
	return etag, lastMod, true
}
