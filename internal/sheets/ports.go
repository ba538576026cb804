package sheets

import (
	"context"

	"impegni/internal/core"
)

// Ports for outbound adapters.
type (
	// OccurrenceExporter appends a month of occurrences to a spreadsheet.
	OccurrenceExporter interface {
		ExportOccurrences(ctx context.Context, owner string, p core.Period, occs []core.Occurrence) (rangeRef string, err error)
	}

	// SnapshotExporter appends a health snapshot in long format, one
	// figure per row.
	SnapshotExporter interface {
		ExportSnapshot(ctx context.Context, snap core.HealthSnapshot) (rangeRef string, err error)
	}

	Exporter interface {
		OccurrenceExporter
		SnapshotExporter
	}
)
