package worker

import (
	"context"
	"fmt"
	"log/slog"

	"impegni/internal/amqp"
	"impegni/internal/core"
	"impegni/internal/sheets"
)

// OccurrenceSource lists a month's occurrences, materializing missing ones.
type OccurrenceSource interface {
	MaterializeAndList(ctx context.Context, owner string, p core.Period) ([]core.Occurrence, error)
}

// SnapshotSource computes a month's health snapshot.
type SnapshotSource interface {
	Summarize(ctx context.Context, owner string, target core.Period) (core.HealthSnapshot, error)
}

// ExportWorker mirrors commitment changes into a spreadsheet. It reacts to
// commitment events and can export a whole month on demand.
type ExportWorker struct {
	occurrences OccurrenceSource
	health      SnapshotSource
	exporter    sheets.Exporter
}

func NewExportWorker(occurrences OccurrenceSource, health SnapshotSource, exporter sheets.Exporter) *ExportWorker {
	return &ExportWorker{
		occurrences: occurrences,
		health:      health,
		exporter:    exporter,
	}
}

// MonthExport is the outcome of exporting one month.
type MonthExport struct {
	Owner          string      `json:"owner"`
	Period         core.Period `json:"period"`
	Occurrences    int         `json:"occurrences"`
	OccurrencesRef string      `json:"occurrences_ref,omitempty"`
	SnapshotRef    string      `json:"snapshot_ref,omitempty"`
}

// ExportMonth exports the occurrences and the health snapshot of p.
func (w *ExportWorker) ExportMonth(ctx context.Context, owner string, p core.Period) (MonthExport, error) {
	out := MonthExport{Owner: owner, Period: p}

	n, ref, err := w.exportOccurrences(ctx, owner, p)
	if err != nil {
		return out, err
	}
	out.Occurrences, out.OccurrencesRef = n, ref

	out.SnapshotRef, err = w.exportSnapshot(ctx, owner, p)
	if err != nil {
		return out, err
	}
	return out, nil
}

// HandleEvent processes a single commitment event from AMQP. Events that
// carry no period have nothing month-scoped to export and are acknowledged.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.CommitmentEvent) error {
	slog.InfoContext(ctx, "Processing commitment event",
		"id", e.ID,
		"type", e.Type,
		"owner", e.Owner,
		"period", e.Period)

	if e.Period == "" || e.Owner == "" {
		slog.DebugContext(ctx, "Event has no owner or period, nothing to export", "id", e.ID, "type", e.Type)
		return nil
	}
	p, err := core.ParsePeriod(e.Period)
	if err != nil {
		// redelivery would fail the same way
		slog.ErrorContext(ctx, "Dropping event with malformed period", "id", e.ID, "period", e.Period, "error", err)
		return nil
	}

	switch e.Type {
	case amqp.OccurrenceUpdated, amqp.TemplateUpdated, amqp.TemplateDeleted:
		_, _, err = w.exportOccurrences(ctx, e.Owner, p)
	case amqp.BillingRecalculated, amqp.StatementClosed:
		_, err = w.exportSnapshot(ctx, e.Owner, p)
	default:
		slog.DebugContext(ctx, "Ignoring event type", "id", e.ID, "type", e.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("handle %s event %s: %w", e.Type, e.ID, err)
	}
	return nil
}

func (w *ExportWorker) exportOccurrences(ctx context.Context, owner string, p core.Period) (int, string, error) {
	occs, err := w.occurrences.MaterializeAndList(ctx, owner, p)
	if err != nil {
		return 0, "", fmt.Errorf("list occurrences: %w", err)
	}
	if len(occs) == 0 {
		return 0, "", nil
	}
	ref, err := w.exporter.ExportOccurrences(ctx, owner, p, occs)
	if err != nil {
		return 0, "", fmt.Errorf("export occurrences: %w", err)
	}
	return len(occs), ref, nil
}

func (w *ExportWorker) exportSnapshot(ctx context.Context, owner string, p core.Period) (string, error) {
	snap, err := w.health.Summarize(ctx, owner, p)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	ref, err := w.exporter.ExportSnapshot(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("export snapshot: %w", err)
	}
	return ref, nil
}
