package stats

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordResultAccumulates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	second := first.Add(7 * 24 * time.Hour)
	if err := m.RecordResult(ctx, "sub-1", 50, first); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if err := m.RecordResult(ctx, "sub-1", -20, second); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	p, err := m.GetProfile(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.TotalProfit != 30 {
		t.Fatalf("TotalProfit = %v, want 30", p.TotalProfit)
	}
	if p.GamesPlayed != 2 {
		t.Fatalf("GamesPlayed = %d, want 2", p.GamesPlayed)
	}
	if !p.LastPlayed.Equal(second) {
		t.Fatalf("LastPlayed = %v, want %v", p.LastPlayed, second)
	}
}

func TestGetProfileUnknown(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetProfile(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRoomsCreatedCounterMonotonic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := m.IncrRoomsCreated(ctx)
		if err != nil {
			t.Fatalf("IncrRoomsCreated: %v", err)
		}
		if got != want {
			t.Fatalf("counter = %d, want %d", got, want)
		}
	}
	total, err := m.RoomsCreated(ctx)
	if err != nil || total != 3 {
		t.Fatalf("RoomsCreated = (%d, %v), want 3", total, err)
	}
}

func TestProfileSnapshotIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.RecordResult(ctx, "sub-1", 10, time.Now()); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	p, _ := m.GetProfile(ctx, "sub-1")
	p.TotalProfit = 999
	again, _ := m.GetProfile(ctx, "sub-1")
	if again.TotalProfit != 10 {
		t.Fatal("mutating a returned profile leaked into the store")
	}
}
