package service

import (
	"testing"
	"time"

	"centone-chat/internal/domain"
)

func TestPerformanceTracker_KeepsLatestPerOwner(t *testing.T) {
	p, err := NewPerformanceTracker(2)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := p.Latest(testOwner); ok {
		t.Fatalf("expected no sample yet")
	}

	p.Record(testOwner, start, start.Add(300*time.Millisecond), intPtr(10), "deepseek-chat")
	s := p.Record(testOwner, start, start.Add(80*time.Millisecond), nil, "deepseek-coder")

	got, ok := p.Latest(testOwner)
	if !ok || got != s {
		t.Fatalf("expected latest sample, got %+v", got)
	}
	if got.LatencyLabel() != "80ms" || got.TokenUsageLabel() != domain.NotAvailable || got.ModelVersion != "deepseek-coder" {
		t.Fatalf("unexpected sample %+v", got)
	}

	other := domain.Owner{AppID: "app", UserID: "u2"}
	if _, ok := p.Latest(other); ok {
		t.Fatalf("samples must be scoped by owner")
	}
}

func TestMonotonicClock(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newMonotonicClock(func() time.Time { return fixed })
	a, b := c.Now(), c.Now()
	if !a.Before(b) {
		t.Fatalf("expected strictly increasing timestamps, got %v then %v", a, b)
	}
}
