package reliability

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets a failure into the service error taxonomy. The HTTP layer
// maps kinds to status codes; the websocket layer maps them to the
// retryable flag on error events.
type Kind string

const (
	// KindConfiguration marks a required external credential or setting
	// as absent. Features degrade where possible; essential paths fail.
	KindConfiguration Kind = "configuration"

	// KindPersistence marks a durable-store failure. Propagates uncaught.
	KindPersistence Kind = "persistence"

	// KindUpstream marks a reasoning, summarization, embedding, or web
	// search provider failure. Propagates uncaught.
	KindUpstream Kind = "upstream"

	// KindRequest marks caller errors (malformed input).
	KindRequest Kind = "request"

	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = "internal"
)

// ClassifiedError attaches a taxonomy kind to an underlying error.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Mark wraps err with the given kind. Returns nil for a nil err.
func Mark(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// KindOf reports the taxonomy kind of err, walking the wrap chain.
// Unmarked errors classify as internal.
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// HTTPStatus maps a taxonomy kind to the response status for a failed
// interaction.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindRequest:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindUpstream:
		return http.StatusBadGateway
	case KindPersistence, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may reasonably retry the same
// interaction. The service itself never retries.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstream, KindPersistence:
		return true
	default:
		return false
	}
}

// IsRetryableHTTPStatus classifies retryable upstream HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// MarkUpstreamStatus classifies a non-2xx provider response by status.
// Auth rejections point at credentials, not the provider; transient
// statuses stay upstream and therefore retryable; any other status means
// the request we built was bad, which is our bug.
func MarkUpstreamStatus(code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Mark(KindConfiguration, err)
	case IsRetryableHTTPStatus(code):
		return Mark(KindUpstream, err)
	default:
		return Mark(KindInternal, err)
	}
}
