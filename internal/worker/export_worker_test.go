package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impegni/internal/amqp"
	"impegni/internal/core"
	"impegni/internal/sheets/memory"
)

type fakeOccurrences struct {
	calls []core.Period
	occs  []core.Occurrence
	err   error
}

func (f *fakeOccurrences) MaterializeAndList(_ context.Context, _ string, p core.Period) ([]core.Occurrence, error) {
	f.calls = append(f.calls, p)
	return f.occs, f.err
}

type fakeHealth struct {
	calls []core.Period
	err   error
}

func (f *fakeHealth) Summarize(_ context.Context, owner string, target core.Period) (core.HealthSnapshot, error) {
	f.calls = append(f.calls, target)
	if f.err != nil {
		return core.HealthSnapshot{}, f.err
	}
	snap := core.HealthSnapshot{Owner: owner, Target: target, Cards: map[string]core.NetworkTotals{}}
	snap.Finalize()
	return snap, nil
}

var july = core.Period{Year: 2025, Month: 7}

func rentOccurrence() core.Occurrence {
	return core.Occurrence{
		Kind: core.Recurring, Period: july, Date: core.NewDate(2025, 7, 5),
		Label: "Rent", Direction: core.Expense, Amount: core.Money{Cents: 80000}, Active: true,
	}
}

func TestExportMonth(t *testing.T) {
	occs := &fakeOccurrences{occs: []core.Occurrence{rentOccurrence()}}
	health := &fakeHealth{}
	store := memory.New()
	w := NewExportWorker(occs, health, store)

	out, err := w.ExportMonth(context.Background(), "alice", july)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Occurrences)
	assert.Equal(t, "mem:2025 occurrences!1:1", out.OccurrencesRef)
	assert.NotEmpty(t, out.SnapshotRef)
	assert.Len(t, store.Rows("2025 occurrences"), 1)
	assert.NotEmpty(t, store.Rows("2025 health"))
}

func TestExportMonthSkipsEmptyMonth(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(&fakeOccurrences{}, &fakeHealth{}, store)

	out, err := w.ExportMonth(context.Background(), "alice", july)
	require.NoError(t, err)

	assert.Zero(t, out.Occurrences)
	assert.Empty(t, out.OccurrencesRef)
	assert.Empty(t, store.Rows("2025 occurrences"))
}

func TestHandleEventRouting(t *testing.T) {
	tests := []struct {
		name          string
		event         *amqp.CommitmentEvent
		wantOccCalls  int
		wantHealthRun int
	}{
		{"occurrence update exports occurrences", &amqp.CommitmentEvent{Type: amqp.OccurrenceUpdated, Owner: "alice", Period: "2025-07"}, 1, 0},
		{"forward edit exports occurrences", &amqp.CommitmentEvent{Type: amqp.TemplateUpdated, Owner: "alice", Period: "2025-07"}, 1, 0},
		{"statement close exports snapshot", &amqp.CommitmentEvent{Type: amqp.StatementClosed, Owner: "alice", Period: "2025-07"}, 0, 1},
		{"recalculation exports snapshot", &amqp.CommitmentEvent{Type: amqp.BillingRecalculated, Owner: "alice", Period: "2025-07"}, 0, 1},
		{"no period is acknowledged", &amqp.CommitmentEvent{Type: amqp.TemplateCreated, Owner: "alice"}, 0, 0},
		{"malformed period is dropped", &amqp.CommitmentEvent{Type: amqp.OccurrenceUpdated, Owner: "alice", Period: "July"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs := &fakeOccurrences{occs: []core.Occurrence{rentOccurrence()}}
			health := &fakeHealth{}
			w := NewExportWorker(occs, health, memory.New())

			require.NoError(t, w.HandleEvent(context.Background(), tt.event))
			assert.Len(t, occs.calls, tt.wantOccCalls)
			assert.Len(t, health.calls, tt.wantHealthRun)
		})
	}
}

func TestHandleEventReturnsErrorForRequeue(t *testing.T) {
	w := NewExportWorker(&fakeOccurrences{err: errors.New("database is locked")}, &fakeHealth{}, memory.New())

	err := w.HandleEvent(context.Background(), &amqp.CommitmentEvent{ID: "e1", Type: amqp.OccurrenceUpdated, Owner: "alice", Period: "2025-07"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}
