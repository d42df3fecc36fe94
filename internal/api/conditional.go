package api

import (
	"net/http"
	"strings"
	"time"
)

// setValidators writes the ETag and Last-Modified response headers.
func setValidators(w http.ResponseWriter, etag string, lastMod time.Time) {
	w.Header().Set("ETag", `"`+etag+`"`)
	if !lastMod.IsZero() {
		w.Header().Set("Last-Modified", lastMod.UTC().Format(http.TimeFormat))
	}
}

// checkPreconditions evaluates the conditional request headers against
// the resource's current validators. It returns 0 when the request may
// proceed, otherwise the status the handler must respond with
// (304 or 412).
func checkPreconditions(r *http.Request, etag string, lastMod time.Time) int {
	readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead

	if im := r.Header.Get("If-Match"); im != "" {
		if im != "*" && !etagListMatches(im, etag) {
			return http.StatusPreconditionFailed
		}
	}
	if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		if t, err := http.ParseTime(ius); err == nil && lastMod.After(t) {
			return http.StatusPreconditionFailed
		}
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" || etagListMatches(inm, etag) {
			if readOnly {
				return http.StatusNotModified
			}
			return http.StatusPreconditionFailed
		}
		return 0
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" && readOnly {
		if t, err := http.ParseTime(ims); err == nil && !lastMod.After(t) {
			return http.StatusNotModified
		}
	}
	return 0
}

// etagListMatches reports whether any tag in a comma-separated header
// value equals etag. Quotes and weak prefixes are stripped before
// comparison.
func etagListMatches(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		tag = strings.TrimPrefix(tag, "W/")
		tag = strings.Trim(tag, `"`)
		if tag == etag {
			return true
		}
	}
	return false
}
