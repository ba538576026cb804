package memory

import (
	"context"
	"testing"
	"time"

	"impegni/internal/core"
	ports "impegni/internal/sheets"
)

func TestMemoryStoreExportOccurrences(t *testing.T) {
	s := New()
	p := core.Period{Year: 2025, Month: 7}
	occs := []core.Occurrence{
		{Period: p, Date: core.NewDate(2025, 7, 5), Label: "Rent", Amount: core.Money{Cents: 80000}},
		{Period: p, Date: core.NewDate(2025, 7, 27), Label: "Salary", Amount: core.Money{Cents: 250000}},
	}

	ref, err := s.ExportOccurrences(context.Background(), "alice", p, occs)
	if err != nil || ref != "mem:2025 occurrences!1:2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	ref, err = s.ExportOccurrences(context.Background(), "alice", p, occs[:1])
	if err != nil || ref != "mem:2025 occurrences!3:3" {
		t.Fatalf("unexpected second export: ref=%q err=%v", ref, err)
	}

	rows := s.Rows("2025 occurrences")
	if len(rows) != 3 || rows[0][4] != "Rent" || rows[1][6] != "2500.00" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestMemoryStoreExportSnapshot(t *testing.T) {
	s := New()
	snap := core.HealthSnapshot{
		Owner:  "alice",
		Target: core.Period{Year: 2026, Month: 1},
		Cards:  map[string]core.NetworkTotals{"visa": {}},
	}

	if _, err := s.ExportSnapshot(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	rows := s.Rows("2026 health")
	if len(rows) == 0 || rows[0][2] != "checking" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if len(s.Rows("2025 health")) != 0 {
		t.Error("snapshot written to the wrong year")
	}
}

func TestMemoryStoreStampsEachBatch(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))
	p := core.Period{Year: 2025, Month: 7}
	rent := core.Occurrence{Period: p, Date: core.NewDate(2025, 7, 5), Label: "Rent", Amount: core.Money{Cents: 80000}}

	if _, err := s.ExportOccurrences(context.Background(), "alice", p, []core.Occurrence{rent}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)
	rent.Amount = core.Money{Cents: 85000}
	if _, err := s.ExportOccurrences(context.Background(), "alice", p, []core.Occurrence{rent}); err != nil {
		t.Fatal(err)
	}

	rows := s.Rows("2025 occurrences")
	if len(rows) != 2 {
		t.Fatalf("expected one row per batch, got %v", rows)
	}
	stamp := len(ports.OccurrenceHeader) - 1
	if rows[0][stamp] != "2025-07-01T09:00:00Z" || rows[1][stamp] != "2025-07-01T10:00:00Z" {
		t.Errorf("unexpected batch stamps: %q, %q", rows[0][stamp], rows[1][stamp])
	}
	if rows[1][6] != "850.00" {
		t.Errorf("latest batch amount = %q, want 850.00", rows[1][6])
	}
}
