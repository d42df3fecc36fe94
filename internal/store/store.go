// Package store implements durable, slug-keyed storage of entries and
// media on the local filesystem. Entries are Atom documents, one file per
// slug under the data directory; media blobs live under the media
// directory with content-type and owning-entry sidecar files.
package store

import (
	"crypto/md5"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/awick/atompress/internal/apperr"
	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/slug"
)

// Kind selects which resource namespace a slug belongs to.
type Kind string

const (
	KindEntry Kind = "entry"
	KindMedia Kind = "media"
)

// DefaultEtagHashLimit is the size in bytes above which ETags switch from
// a content hash to the cheaper mtime+size+path composite.
const DefaultEtagHashLimit = 4096

const docCacheSize = 256

// cachedDoc pairs a parsed document with the file state it was read
// from, so out-of-band edits to the entry file invalidate the cache.
type cachedDoc struct {
	doc   *atomdoc.Document
	mtime time.Time
	size  int64
}

// Store is the filesystem-backed resource store.
type Store struct {
	dataDir       string
	mediaDir      string
	etagHashLimit int64
	gen           *slug.Generator
	docs          *lru.Cache[string, cachedDoc]
}

// New creates a Store rooted at dataDir. mediaDir may be empty, in which
// case media is kept under dataDir/media. Both directories are created if
// missing.
func New(dataDir, mediaDir string, etagHashLimit int64) (*Store, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve data dir: %w", err)
	}
	if mediaDir == "" {
		mediaDir = filepath.Join(abs, "media")
	} else if mediaDir, err = filepath.Abs(mediaDir); err != nil {
		return nil, fmt.Errorf("store: resolve media dir: %w", err)
	}
	for _, dir := range []string{abs, mediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
		}
	}
	if etagHashLimit <= 0 {
		etagHashLimit = DefaultEtagHashLimit
	}
	cache, err := lru.New[string, cachedDoc](docCacheSize)
	if err != nil {
		return nil, fmt.Errorf("store: init document cache: %w", err)
	}
	return &Store{
		dataDir:       abs,
		mediaDir:      mediaDir,
		etagHashLimit: etagHashLimit,
		gen:           slug.NewGenerator(),
		docs:          cache,
	}, nil
}

// filename resolves a slug to its absolute path, validating the slug so a
// crafted identifier can never escape the store directories.
func (s *Store) filename(sl string, kind Kind) (string, error) {
	if err := slug.Validate(sl); err != nil {
		return "", err
	}
	switch kind {
	case KindEntry:
		return filepath.Join(s.dataDir, sl), nil
	case KindMedia:
		return filepath.Join(s.mediaDir, sl), nil
	default:
		return "", fmt.Errorf("store: bad resource kind %q", kind)
	}
}

// CreateSlug produces an unused slug for the given resource kind,
// honoring hint when it survives normalization and does not collide.
func (s *Store) CreateSlug(hint string, kind Kind, ext string) (string, error) {
	exists := func(candidate string) bool {
		fn, err := s.filename(candidate, kind)
		if err != nil {
			return true // unusable counts as occupied
		}
		_, err = os.Stat(fn)
		return err == nil
	}
	sl, err := s.gen.Generate(hint, ext, exists)
	if err != nil {
		return "", fmt.Errorf("store: create slug: %w", err)
	}
	return sl, nil
}

// GetEntry loads and parses the entry stored under sl. A cached parse is
// used only while the file's mtime and size are unchanged, so edits made
// directly on disk are always re-read.
func (s *Store) GetEntry(sl string) (*atomdoc.Document, error) {
	fn, err := s.filename(sl, KindEntry)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fn)
	if err != nil {
		s.docs.Remove(sl)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("store: entry %s: %w", sl, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: stat entry %s: %w", sl, err)
	}
	if c, ok := s.docs.Get(sl); ok && c.mtime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.doc.Clone(), nil
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("store: read entry %s: %w", sl, err)
	}
	doc, err := atomdoc.Parse(data)
	if err != nil {
		return nil, err
	}
	s.docs.Add(sl, cachedDoc{doc: doc.Clone(), mtime: info.ModTime(), size: info.Size()})
	return doc, nil
}

// SaveEntry persists doc under sl, atomically.
func (s *Store) SaveEntry(sl string, doc *atomdoc.Document) error {
	fn, err := s.filename(sl, KindEntry)
	if err != nil {
		return err
	}
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	if err := s.writeAtomic(fn, data); err != nil {
		return err
	}
	if info, err := os.Stat(fn); err == nil {
		s.docs.Add(sl, cachedDoc{doc: doc.Clone(), mtime: info.ModTime(), size: info.Size()})
	} else {
		s.docs.Remove(sl)
	}
	return nil
}

// DeleteEntry removes the entry file for sl.
func (s *Store) DeleteEntry(sl string) error {
	fn, err := s.filename(sl, KindEntry)
	if err != nil {
		return err
	}
	s.docs.Remove(sl)
	if err := os.Remove(fn); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("store: entry %s: %w", sl, apperr.ErrNotFound)
		}
		return fmt.Errorf("store: delete entry %s: %w", sl, err)
	}
	return nil
}

// EntryExists reports whether an entry occupies sl.
func (s *Store) EntryExists(sl string) bool {
	fn, err := s.filename(sl, KindEntry)
	if err != nil {
		return false
	}
	_, err = os.Stat(fn)
	return err == nil
}

// EntrySlugs lists every stored entry, most recently modified first.
// Ties are broken by ascending slug so the order is deterministic on
// filesystems with coarse mtime granularity.
func (s *Store) EntrySlugs() ([]string, error) {
	dirents, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	type item struct {
		slug  string
		mtime time.Time
	}
	var items []item
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		items = append(items, item{slug: de.Name(), mtime: info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].mtime.Equal(items[j].mtime) {
			return items[i].mtime.After(items[j].mtime)
		}
		return items[i].slug < items[j].slug
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.slug
	}
	return out, nil
}

// MostRecent returns the newest entry modification time, or the zero time
// for an empty store.
func (s *Store) MostRecent() time.Time {
	var most time.Time
	dirents, err := os.ReadDir(s.dataDir)
	if err != nil {
		return most
	}
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		if info, err := de.Info(); err == nil && info.ModTime().After(most) {
			most = info.ModTime()
		}
	}
	return most.UTC()
}

// ETag computes the advisory entity tag for a resource. Small files get
// an MD5 content hash; files above the configured limit get a composite
// of mtime, size and a path hash, trading a theoretical collision for not
// rereading large blobs.
func (s *Store) ETag(sl string, kind Kind) (string, error) {
	fn, err := s.filename(sl, kind)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("store: %s %s: %w", kind, sl, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("store: stat %s: %w", sl, err)
	}
	if info.Size() > s.etagHashLimit {
		h := fnv.New32a()
		_, _ = h.Write([]byte(fn))
		return fmt.Sprintf("%x-%x-%x", info.ModTime().Unix(), info.Size(), h.Sum32()), nil
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		return "", fmt.Errorf("store: read for etag %s: %w", sl, err)
	}
	return fmt.Sprintf("%x", md5.Sum(data)), nil
}

// LastModified returns the resource's modification time in UTC, truncated
// to seconds to match HTTP date precision.
func (s *Store) LastModified(sl string, kind Kind) (time.Time, error) {
	fn, err := s.filename(sl, kind)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, fmt.Errorf("store: %s %s: %w", kind, sl, apperr.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("store: stat %s: %w", sl, err)
	}
	return info.ModTime().UTC().Truncate(time.Second), nil
}

// Clear removes every entry and media file. Directories (such as a media
// dir nested under the data dir) are left in place.
func (s *Store) Clear() error {
	s.docs.Purge()
	for _, dir := range []string{s.dataDir, s.mediaDir} {
		dirents, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("store: clear %s: %w", dir, err)
		}
		for _, de := range dirents {
			if de.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
				return fmt.Errorf("store: clear %s: %w", de.Name(), err)
			}
		}
	}
	return nil
}

// writeAtomic writes data via tmp file, fsync and rename.
func (s *Store) writeAtomic(abs string, data []byte) error {
	return writeAtomicFrom(abs, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomicFrom(abs string, fill func(io.Writer) error) error {
	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".atompress-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

// ExtForContentType maps a MIME type to a file extension for media slugs.
func ExtForContentType(contentType string) string {
	ct := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if ct == "" {
		return ".bin"
	}
	// Prefer the conventional extensions for a few common types; the
	// mime package's first choice is platform dependent.
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "text/plain":
		return ".txt"
	case "image/png":
		return ".png"
	}
	exts, err := mime.ExtensionsByType(ct)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
