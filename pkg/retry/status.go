package retry

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ResponseStatuser is implemented by errors that carry the HTTP response
// they were built from.
type ResponseStatuser interface {
	ResponseStatus() int
}

type statusCoder interface {
	StatusCode() int
}

type coder interface {
	Code() int
}

// StatusOf extracts the HTTP status of a failed call. The status of a nested
// response wins over a top-level code.
func StatusOf(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code != 0 {
		return gerr.Code, true
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode, true
	}
	var rs ResponseStatuser
	if errors.As(err, &rs) && rs.ResponseStatus() != 0 {
		return rs.ResponseStatus(), true
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() != 0 {
		return sc.StatusCode(), true
	}
	var c coder
	if errors.As(err, &c) && c.Code() != 0 {
		return c.Code(), true
	}
	return 0, false
}

// PermanentError marks a failure that has already been retried where it
// happened. Do returns it on the first attempt whatever status it wraps.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that no enclosing Do retries it. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Retryable reports whether err carries a throttling or transient server
// status.
func Retryable(err error) bool {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
