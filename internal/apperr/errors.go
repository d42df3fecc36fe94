package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidSlug  = errors.New("invalid slug")
	ErrInvalidQuery = errors.New("invalid query parameter")
)
