package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"summarize-gateway/middleware/ratelimit/domain"
	"summarize-gateway/middleware/ratelimit/infra"
)

func TestWriteHeaders_AllowedHasNoRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, domain.Decision{Allowed: true, Limit: 5, Remaining: 4, Window: time.Minute})

	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit 5, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("expected remaining 4, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Window"); got != "60" {
		t.Fatalf("expected window 60, got %q", got)
	}
	if got := w.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no Retry-After, got %q", got)
	}
}

func TestWriteHeaders_RetryAfterRoundsUp(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, domain.Decision{Allowed: false, Limit: 5, Window: time.Minute, RetryAfter: 2500 * time.Millisecond})

	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After=3, got %q", got)
	}
}

func TestRecord_UsesRequestRoute(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	r := httptest.NewRequest(http.MethodPost, "http://example/api/summarize", nil)

	if err := Record(context.Background(), stats, r, "k", domain.OutcomeRejected, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stats.ByRoute()["POST /api/summarize"]; got.Rejected != 1 {
		t.Fatalf("expected one rejected event for route, got %+v", got)
	}
}

func TestRecord_NilStoreIsNoop(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	if err := Record(context.Background(), nil, r, "k", domain.OutcomeAdmitted, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
