package infra

import (
	"context"
	"testing"
	"time"

	"summarize-gateway/middleware/ratelimit/domain"
)

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	s := NewRedisStatsStore(nil)
	if err := s.Record(context.Background(), domain.StatsEvent{Outcome: domain.OutcomeAdmitted}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestRedisStatsStore_Keys(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsPrefix("app:stats:"), WithStatsTrackKeys(true))
	ev := domain.StatsEvent{
		Key:     "10.0.0.1",
		Outcome: domain.OutcomeRejected,
		Method:  "POST",
		Path:    "/api/summarize",
		At:      time.Date(2025, 10, 4, 12, 30, 0, 0, time.UTC),
	}

	got := s.Keys(ev)
	want := []string{
		"app:stats:total",
		"app:stats:minute:202510041230",
		"app:stats:route",
		"app:stats:key:10.0.0.1",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRedisStatsStore_NoBucket(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsBucket(" NONE "))
	got := s.Keys(domain.StatsEvent{Outcome: domain.OutcomeAdmitted})
	if len(got) != 1 || got[0] != "summarize:stats:total" {
		t.Fatalf("expected only total key, got %v", got)
	}
}
