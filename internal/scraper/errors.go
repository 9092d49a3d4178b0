package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchReason classifies why a fetch failed.
type FetchReason string

// Fetch failure reasons.
const (
	ReasonInvalidURL           FetchReason = "InvalidURL"
	ReasonTimeout              FetchReason = "Timeout"
	ReasonDNSFailure           FetchReason = "DNSFailure"
	ReasonHTTPError            FetchReason = "HTTPError"
	ReasonBrowserLaunchFailure FetchReason = "BrowserLaunchFailure"
	ReasonUnknown              FetchReason = "Unknown"
)

// FetchError is returned by fetchers.
type FetchError struct {
	Reason     FetchReason
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Reason, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Kind is the caller-facing error category.
type Kind string

// Error kinds surfaced by the service.
const (
	KindInvalidInput  Kind = "InvalidInput"
	KindFetchTimeout  Kind = "FetchTimeout"
	KindUnreachable   Kind = "Unreachable"
	KindNotFound      Kind = "NotFound"
	KindQuotaExceeded Kind = "QuotaExceeded"
	KindInternal      Kind = "Internal"
)

// ErrRecordNotFound is returned by stores when no owned record matches.
var ErrRecordNotFound = errors.New("record not found")

// Error is the typed error returned by Service operations.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput, KindFetchTimeout, KindUnreachable:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// InvalidInput builds a caller-correctable error.
func InvalidInput(msg string) *Error {
	return newError(KindInvalidInput, msg, nil)
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return newError(KindInternal, msg, err)
}

// NotFound builds a missing-record error.
func NotFound(msg string) *Error {
	return newError(KindNotFound, msg, nil)
}

// KindOf returns the Kind carried by err, or KindInternal when err is untyped.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// fromFetchError lifts a fetch failure into the service taxonomy.
func fromFetchError(err error) *Error {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return Internal("scrape failed", err)
	}
	switch fe.Reason {
	case ReasonInvalidURL:
		return newError(KindInvalidInput, "invalid URL", err)
	case ReasonTimeout:
		return newError(KindFetchTimeout, "timed out fetching the website", err)
	case ReasonDNSFailure:
		return newError(KindUnreachable, "the website is unreachable", err)
	case ReasonHTTPError:
		return newError(KindUnreachable, fmt.Sprintf("the website responded with status %d", fe.StatusCode), err)
	case ReasonBrowserLaunchFailure:
		return Internal("browser could not be launched", err)
	default:
		return Internal("scrape failed", err)
	}
}
