package pagination

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by page fetches.
var (
	// ErrTooManyRedirects is returned when a page fetch exceeds the
	// redirect hop bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrMissingLocation is returned when a redirect response carries
	// no Location header.
	ErrMissingLocation = errors.New("redirect without location")
)

// HTTPError is a non-success HTTP status for a page fetch.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("page fetch %s: %s", e.URL, e.Status)
}

// NextLinkError is a next link that could not be parsed. It is
// terminal: the sequence produces no further items after it.
type NextLinkError struct {
	Link string
	Err  error
}

// Error implements the error interface.
func (e *NextLinkError) Error() string {
	return fmt.Sprintf("parse next link %q: %v", e.Link, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NextLinkError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an HTTPError with status 404.
// Callers use this to translate a missing sub-resource into "no data
// available" rather than a hard failure.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}
