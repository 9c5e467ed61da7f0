package request

import (
	"errors"
	"net/http"
	"strconv"
)

// DefaultLimit is used when a list endpoint is called without ?limit=
const DefaultLimit = 20

// MaxLimit caps ?limit= on list endpoints
const MaxLimit = 100

// ErrInvalidLimit is returned for a non-numeric or non-positive limit
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// ParseLimit reads the limit query parameter, clamping it to MaxLimit
func ParseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, ErrInvalidLimit
	}
	return min(n, MaxLimit), nil
}

// ParseSize reads the size query parameter for images, falling back to def
func ParseSize(r *http.Request, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get("size")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, errors.New("size out of range")
	}
	return n, nil
}
