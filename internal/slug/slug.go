// Package slug generates and validates the unique, URL- and
// filesystem-safe identifiers under which entries and media are stored.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/awick/atompress/internal/apperr"
)

const maxLen = 200

var (
	validRe  = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	unsafeRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	sepRe    = regexp.MustCompile(`[ .]+`)
)

// reserved names collide with fixed routes and may never be slugs.
var reserved = map[string]struct{}{
	"service": {},
	"media":   {},
}

// Validate reports whether s is acceptable as a slug.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("slug: empty: %w", apperr.ErrInvalidSlug)
	}
	if len(s) > maxLen {
		return fmt.Errorf("slug: too long (%d > %d): %w", len(s), maxLen, apperr.ErrInvalidSlug)
	}
	if !validRe.MatchString(s) {
		return fmt.Errorf("slug: disallowed characters in %q: %w", s, apperr.ErrInvalidSlug)
	}
	// "." and ".." pass the character class but name the store dir or
	// its parent.
	if strings.Trim(s, ".") == "" {
		return fmt.Errorf("slug: dot-only name %q: %w", s, apperr.ErrInvalidSlug)
	}
	if _, ok := reserved[strings.ToLower(s)]; ok {
		return fmt.Errorf("slug: reserved word %q: %w", s, apperr.ErrInvalidSlug)
	}
	return nil
}

// Normalize turns a client-supplied hint into a candidate slug: the hint's
// own extension is dropped, space and dot runs are collapsed, characters
// outside the safe set are stripped, and ext (including the leading dot,
// or empty) is appended.
func Normalize(hint, ext string) string {
	base, _, _ := strings.Cut(hint, ".")
	base = sepRe.ReplaceAllString(base, " ")
	base = unsafeRe.ReplaceAllString(base, "")
	return base + ext
}

// Generator produces temporally ordered fallback slugs of the form
// <UTC-date>-<counter>, resetting the counter whenever the date bucket
// changes. Safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	date string
	n    int
	now  func() time.Time
}

// NewGenerator returns a Generator using the real clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorAt returns a Generator with an injected clock, for tests.
func NewGeneratorAt(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// maxAttempts bounds the collision-retry loop. The dated counter makes
// exhaustion impossible short of a pathological exists check.
const maxAttempts = 1 << 20

// Generate returns an unused slug. When hint normalizes to a valid,
// unoccupied slug it is honored verbatim; otherwise dated-counter slugs
// are produced until exists rejects one. A failed hint is a silent
// fallback, never an error.
func (g *Generator) Generate(hint, ext string, exists func(string) bool) (string, error) {
	if hint != "" {
		s := Normalize(hint, ext)
		if Validate(s) == nil && !exists(s) {
			return s, nil
		}
	}
	for i := 0; i < maxAttempts; i++ {
		s := g.next() + ext
		if !exists(s) {
			return s, nil
		}
	}
	return "", fmt.Errorf("slug: exhausted %d generation attempts", maxAttempts)
}

func (g *Generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.now().UTC().Format("2006-01-02")
	if d != g.date {
		g.date = d
		g.n = 0
	}
	g.n++
	return fmt.Sprintf("%s-%d", d, g.n)
}
