package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/awick/atompress/internal/apperr"
	"github.com/awick/atompress/internal/query"
)

// feedParams are the GData-style scalar query parameters.
type feedParams struct {
	Q            string `schema:"q"`
	Author       string `schema:"author"`
	UpdatedMin   string `schema:"updated-min"`
	UpdatedMax   string `schema:"updated-max"`
	PublishedMin string `schema:"published-min"`
	PublishedMax string `schema:"published-max"`
	StartIndex   int    `schema:"start-index"`
	MaxResults   int    `schema:"max-results"`
}

var paramDecoder = newParamDecoder()

func newParamDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// parseFeedQuery decodes the request into a structured query plus
// pagination parameters. The category expression, if any, comes from the
// /-/ path segments.
func parseFeedQuery(r *http.Request) (query.Query, int, int, error) {
	var p feedParams
	if err := paramDecoder.Decode(&p, r.URL.Query()); err != nil {
		return query.Query{}, 0, 0, fmt.Errorf("api: decode query string: %w", apperr.ErrInvalidQuery)
	}

	q := query.Query{Text: p.Q, Author: p.Author}
	var err error
	if q.Updated, err = parseRange(p.UpdatedMin, p.UpdatedMax); err != nil {
		return query.Query{}, 0, 0, err
	}
	if q.Published, err = parseRange(p.PublishedMin, p.PublishedMax); err != nil {
		return query.Query{}, 0, 0, err
	}

	if catPath := chi.URLParam(r, "*"); catPath != "" {
		q.Categories, err = ParseCategoryPath(catPath)
		if err != nil {
			return query.Query{}, 0, 0, err
		}
	}
	return q, p.StartIndex, p.MaxResults, nil
}

func parseRange(minStr, maxStr string) (query.DateRange, error) {
	var rng query.DateRange
	var err error
	if rng.From, err = parseQueryDate(minStr); err != nil {
		return rng, err
	}
	rng.To, err = parseQueryDate(maxStr)
	return rng, err
}

func parseQueryDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("api: unparsable date %q: %w", s, apperr.ErrInvalidQuery)
}

// ParseCategoryPath parses GData category path segments into a category
// expression. Segments are ANDed; `|` within a segment is OR; a leading
// `-` negates a term; a `{scheme}` prefix pins the scheme, with `{}`
// meaning "no scheme".
//
//	tech/-boring        -> And(Term(tech), Not(Term(boring)))
//	{tags}go|{tags}rust -> Or(InScheme(tags,go), InScheme(tags,rust))
func ParseCategoryPath(path string) (query.CategoryExpr, error) {
	var groups query.And
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		var alts query.Or
		for _, raw := range strings.Split(seg, "|") {
			expr, err := parseCategoryTerm(raw)
			if err != nil {
				return nil, err
			}
			alts = append(alts, expr)
		}
		if len(alts) == 1 {
			groups = append(groups, alts[0])
		} else if len(alts) > 0 {
			groups = append(groups, alts)
		}
	}
	switch len(groups) {
	case 0:
		return nil, nil
	case 1:
		return groups[0], nil
	default:
		return groups, nil
	}
}

func parseCategoryTerm(raw string) (query.CategoryExpr, error) {
	raw, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("api: bad category %q: %w", raw, apperr.ErrInvalidQuery)
	}
	negated := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	var expr query.CategoryExpr
	if strings.HasPrefix(raw, "{") {
		scheme, term, ok := strings.Cut(raw[1:], "}")
		if !ok {
			return nil, fmt.Errorf("api: unterminated scheme in %q: %w", raw, apperr.ErrInvalidQuery)
		}
		expr = query.InScheme(scheme, term)
	} else {
		if raw == "" {
			return nil, fmt.Errorf("api: empty category term: %w", apperr.ErrInvalidQuery)
		}
		expr = query.AnyScheme(raw)
	}
	if negated {
		return query.Not{Expr: expr}, nil
	}
	return expr, nil
}
