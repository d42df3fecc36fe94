package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func condReq(t *testing.T, method string, hdr map[string]string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, "/x", nil)
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	return r
}

func TestCheckPreconditionsNoHeaders(t *testing.T) {
	r := condReq(t, http.MethodGet, nil)
	if got := checkPreconditions(r, "abc", time.Now()); got != 0 {
		t.Errorf("status = %d, want 0", got)
	}
}

func TestIfMatch(t *testing.T) {
	lm := time.Now().UTC()
	cases := []struct {
		header string
		want   int
	}{
		{`"abc"`, 0},
		{`*`, 0},
		{`"stale"`, http.StatusPreconditionFailed},
		{`W/"abc"`, 0},
		{`"one", "abc"`, 0},
	}
	for _, c := range cases {
		r := condReq(t, http.MethodPut, map[string]string{"If-Match": c.header})
		if got := checkPreconditions(r, "abc", lm); got != c.want {
			t.Errorf("If-Match %q = %d, want %d", c.header, got, c.want)
		}
	}
}

func TestIfNoneMatch(t *testing.T) {
	lm := time.Now().UTC()

	r := condReq(t, http.MethodGet, map[string]string{"If-None-Match": `"abc"`})
	if got := checkPreconditions(r, "abc", lm); got != http.StatusNotModified {
		t.Errorf("GET matching If-None-Match = %d, want 304", got)
	}

	r = condReq(t, http.MethodPut, map[string]string{"If-None-Match": `"abc"`})
	if got := checkPreconditions(r, "abc", lm); got != http.StatusPreconditionFailed {
		t.Errorf("PUT matching If-None-Match = %d, want 412", got)
	}

	r = condReq(t, http.MethodGet, map[string]string{"If-None-Match": `"other"`})
	if got := checkPreconditions(r, "abc", lm); got != 0 {
		t.Errorf("non-matching If-None-Match = %d, want 0", got)
	}
}

func TestIfModifiedSince(t *testing.T) {
	lm := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	r := condReq(t, http.MethodGet, map[string]string{
		"If-Modified-Since": lm.Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "abc", lm); got != http.StatusNotModified {
		t.Errorf("unchanged resource = %d, want 304", got)
	}

	r = condReq(t, http.MethodGet, map[string]string{
		"If-Modified-Since": lm.Add(-time.Hour).Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "abc", lm); got != 0 {
		t.Errorf("changed resource = %d, want 0", got)
	}

	// Write methods ignore If-Modified-Since.
	r = condReq(t, http.MethodDelete, map[string]string{
		"If-Modified-Since": lm.Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "abc", lm); got != 0 {
		t.Errorf("DELETE with If-Modified-Since = %d, want 0", got)
	}
}

func TestIfUnmodifiedSince(t *testing.T) {
	lm := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	r := condReq(t, http.MethodPut, map[string]string{
		"If-Unmodified-Since": lm.Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "abc", lm); got != 0 {
		t.Errorf("unchanged resource = %d, want 0", got)
	}

	r = condReq(t, http.MethodPut, map[string]string{
		"If-Unmodified-Since": lm.Add(-time.Hour).Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "abc", lm); got != http.StatusPreconditionFailed {
		t.Errorf("resource modified since = %d, want 412", got)
	}
}

func TestIfNoneMatchWinsOverIfModifiedSince(t *testing.T) {
	lm := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// ETag says changed; the stale date header must not produce a 304.
	r := condReq(t, http.MethodGet, map[string]string{
		"If-None-Match":     `"old"`,
		"If-Modified-Since": lm.Format(http.TimeFormat),
	})
	if got := checkPreconditions(r, "new", lm); got != 0 {
		t.Errorf("status = %d, want 0 (etag comparison wins)", got)
	}
}
