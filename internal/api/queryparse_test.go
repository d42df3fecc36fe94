package api

import (
	"errors"
	"testing"

	"github.com/awick/atompress/internal/apperr"
	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/query"
)

func TestParseCategoryPathSingleTerm(t *testing.T) {
	expr, err := ParseCategoryPath("travel")
	if err != nil {
		t.Fatalf("ParseCategoryPath: %v", err)
	}
	cats := []atomdoc.Category{{Term: "travel"}}
	if !expr.Matches(cats) {
		t.Error("travel should match a travel category")
	}
	if expr.Matches([]atomdoc.Category{{Term: "food"}}) {
		t.Error("travel should not match food")
	}
}

func TestParseCategoryPathAndSegments(t *testing.T) {
	expr, err := ParseCategoryPath("travel/-boring")
	if err != nil {
		t.Fatalf("ParseCategoryPath: %v", err)
	}
	if !expr.Matches([]atomdoc.Category{{Term: "travel"}}) {
		t.Error("travel without boring should match")
	}
	if expr.Matches([]atomdoc.Category{{Term: "travel"}, {Term: "boring"}}) {
		t.Error("travel with boring should not match")
	}
}

func TestParseCategoryPathAlternatives(t *testing.T) {
	expr, err := ParseCategoryPath("go|rust")
	if err != nil {
		t.Fatalf("ParseCategoryPath: %v", err)
	}
	if !expr.Matches([]atomdoc.Category{{Term: "rust"}}) {
		t.Error("rust should satisfy go|rust")
	}
	if expr.Matches([]atomdoc.Category{{Term: "python"}}) {
		t.Error("python should not satisfy go|rust")
	}
}

func TestParseCategoryPathScheme(t *testing.T) {
	expr, err := ParseCategoryPath("{http%3A%2F%2Fexample.com%2Ftags}go")
	if err != nil {
		t.Fatalf("ParseCategoryPath: %v", err)
	}
	if !expr.Matches([]atomdoc.Category{{Term: "go", Scheme: "http://example.com/tags"}}) {
		t.Error("schemed category should match")
	}
	if expr.Matches([]atomdoc.Category{{Term: "go", Scheme: "http://other.com"}}) {
		t.Error("wrong scheme should not match")
	}

	// {} pins "no scheme".
	expr, err = ParseCategoryPath("{}draft")
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Matches([]atomdoc.Category{{Term: "draft"}}) {
		t.Error("schemeless category should match {}draft")
	}
	if expr.Matches([]atomdoc.Category{{Term: "draft", Scheme: "s"}}) {
		t.Error("schemed category should not match {}draft")
	}
}

func TestParseCategoryPathEmpty(t *testing.T) {
	expr, err := ParseCategoryPath("/")
	if err != nil {
		t.Fatalf("ParseCategoryPath: %v", err)
	}
	if expr != nil {
		t.Errorf("expr = %+v, want nil for empty path", expr)
	}
}

func TestParseCategoryPathErrors(t *testing.T) {
	for _, bad := range []string{"{unterminated", "-", "%zz"} {
		if _, err := ParseCategoryPath(bad); !errors.Is(err, apperr.ErrInvalidQuery) {
			t.Errorf("ParseCategoryPath(%q) = %v, want ErrInvalidQuery", bad, err)
		}
	}
}

func TestParseQueryDate(t *testing.T) {
	if _, err := parseQueryDate("2024-03-01"); err != nil {
		t.Errorf("day-only date rejected: %v", err)
	}
	if _, err := parseQueryDate("2024-03-01T10:00:00Z"); err != nil {
		t.Errorf("RFC3339 date rejected: %v", err)
	}
	if _, err := parseQueryDate("yesterday"); !errors.Is(err, apperr.ErrInvalidQuery) {
		t.Errorf("bad date accepted: %v", err)
	}
}

func TestParseCategoryPathNested(t *testing.T) {
	expr, err := ParseCategoryPath("a|b/c")
	if err != nil {
		t.Fatal(err)
	}
	and, ok := expr.(query.And)
	if !ok || len(and) != 2 {
		t.Fatalf("expr = %#v, want And of two groups", expr)
	}
	if !expr.Matches([]atomdoc.Category{{Term: "b"}, {Term: "c"}}) {
		t.Error("b+c should satisfy a|b/c")
	}
	if expr.Matches([]atomdoc.Category{{Term: "a"}}) {
		t.Error("a alone lacks c")
	}
}
