package store

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/awick/atompress/internal/apperr"
)

// Media sidecar suffixes. The blob for slug X lives at X, its content
// type at X.content-type and its owning entry at X.entry-slug.
const (
	contentTypeSuffix = ".content-type"
	entrySlugSuffix   = ".entry-slug"
)

// MediaPath returns the absolute path of the media blob for sl, or
// ErrNotFound when no blob exists.
func (s *Store) MediaPath(sl string) (string, error) {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fn); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("store: media %s: %w", sl, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("store: stat media %s: %w", sl, err)
	}
	return fn, nil
}

// MediaExists reports whether a blob occupies sl.
func (s *Store) MediaExists(sl string) bool {
	_, err := s.MediaPath(sl)
	return err == nil
}

// SaveMedia streams r into the blob for sl and records its content type.
func (s *Store) SaveMedia(sl string, r io.Reader, contentType string) error {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return err
	}
	if err := writeAtomicFrom(fn, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return err
	}
	if contentType != "" {
		if err := os.WriteFile(fn+contentTypeSuffix, []byte(contentType), 0o644); err != nil {
			return fmt.Errorf("store: write content type for %s: %w", sl, err)
		}
	}
	return nil
}

// MediaContentType returns the recorded content type for sl, guessing
// from the slug's extension when no sidecar exists.
func (s *Store) MediaContentType(sl string) (string, error) {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fn + contentTypeSuffix)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("store: read content type for %s: %w", sl, err)
	}
	if ct := mime.TypeByExtension(filepath.Ext(sl)); ct != "" {
		return ct, nil
	}
	return "application/octet-stream", nil
}

// MediaEntry returns the slug of the entry owning this media, or empty
// when the media is unowned. The back-reference is a cache of the entry's
// rel=edit-media link, not an authoritative relation.
func (s *Store) MediaEntry(sl string) (string, error) {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fn + entrySlugSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("store: read entry slug for %s: %w", sl, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetMediaEntry records the owning entry slug for sl.
func (s *Store) SetMediaEntry(sl, entrySlug string) error {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fn+entrySlugSuffix, []byte(entrySlug), 0o644); err != nil {
		return fmt.Errorf("store: write entry slug for %s: %w", sl, err)
	}
	return nil
}

// DeleteMedia removes the blob and both sidecars for sl.
func (s *Store) DeleteMedia(sl string) error {
	fn, err := s.filename(sl, KindMedia)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fn); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: media %s: %w", sl, apperr.ErrNotFound)
	}
	for _, suffix := range []string{contentTypeSuffix, entrySlugSuffix, ""} {
		if err := os.Remove(fn + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("store: delete media %s: %w", sl, err)
		}
	}
	return nil
}
