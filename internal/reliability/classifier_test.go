package reliability

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWalksWrapChain(t *testing.T) {
	base := errors.New("connection refused")
	marked := Mark(KindPersistence, base)
	wrapped := fmt.Errorf("save conversation: %w", marked)

	if got := KindOf(wrapped); got != KindPersistence {
		t.Fatalf("KindOf() = %q, want %q", got, KindPersistence)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("wrap chain should reach the base error")
	}
}

func TestKindOfUnmarkedDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("KindOf() = %q, want %q", got, KindInternal)
	}
}

func TestMarkNilIsNil(t *testing.T) {
	if err := Mark(KindUpstream, nil); err != nil {
		t.Fatalf("Mark(nil) = %v, want nil", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindRequest, http.StatusBadRequest},
		{KindConfiguration, http.StatusServiceUnavailable},
		{KindUpstream, http.StatusBadGateway},
		{KindPersistence, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.kind); got != tc.want {
			t.Fatalf("HTTPStatus(%q) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Mark(KindUpstream, errors.New("model timeout"))) {
		t.Fatalf("upstream errors should be retryable")
	}
	if Retryable(Mark(KindRequest, errors.New("empty message"))) {
		t.Fatalf("request errors should not be retryable")
	}
}

func TestMarkUpstreamStatus(t *testing.T) {
	cases := []struct {
		code      int
		wantKind  Kind
		wantRetry bool
	}{
		{http.StatusTooManyRequests, KindUpstream, true},
		{http.StatusBadGateway, KindUpstream, true},
		{http.StatusUnauthorized, KindConfiguration, false},
		{http.StatusForbidden, KindConfiguration, false},
		{http.StatusBadRequest, KindInternal, false},
	}
	for _, tc := range cases {
		err := MarkUpstreamStatus(tc.code, fmt.Errorf("status %d", tc.code))
		if got := KindOf(err); got != tc.wantKind {
			t.Fatalf("MarkUpstreamStatus(%d) kind = %q, want %q", tc.code, got, tc.wantKind)
		}
		if got := Retryable(err); got != tc.wantRetry {
			t.Fatalf("MarkUpstreamStatus(%d) retryable = %v, want %v", tc.code, got, tc.wantRetry)
		}
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}
