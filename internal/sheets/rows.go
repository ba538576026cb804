package sheets

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"impegni/internal/core"
)

// Column headers of the exported sheets. Sheets are append-only logs: a
// month exported again is written as a new batch, and every row of a batch
// carries the same Exported At stamp so readers can keep the latest one.
var (
	OccurrenceHeader = []string{"Owner", "Period", "Date", "Kind", "Label", "Direction", "Amount", "Installment", "Network", "Override", "Active", "Exported At"}
	SnapshotHeader   = []string{"Owner", "Target", "Section", "Name", "Amount", "Exported At"}
)

// ExportStamp formats the batch timestamp written in the Exported At column.
func ExportStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// OccurrenceRows renders occs as sheet rows, amounts in major units.
func OccurrenceRows(owner string, occs []core.Occurrence, exportedAt time.Time) [][]string {
	stamp := ExportStamp(exportedAt)
	rows := make([][]string, 0, len(occs))
	for _, o := range occs {
		seq := ""
		if o.Sequence != nil {
			seq = strconv.Itoa(*o.Sequence)
		}
		rows = append(rows, []string{
			owner,
			o.Period.String(),
			o.Date.String(),
			string(o.Kind),
			o.Label,
			string(o.Direction),
			amount(o.Amount),
			seq,
			o.Network,
			yesNo(o.Override),
			yesNo(o.Active),
			stamp,
		})
	}
	return rows
}

// SnapshotRows renders snap in long format. Card networks are sorted so
// consecutive exports line up.
func SnapshotRows(snap core.HealthSnapshot, exportedAt time.Time) [][]string {
	target := snap.Target.String()
	stamp := ExportStamp(exportedAt)
	row := func(section, name, value string) []string {
		return []string{snap.Owner, target, section, name, value, stamp}
	}

	rows := [][]string{row("checking", "", amount(snap.CheckingBalance))}

	networks := make([]string, 0, len(snap.Cards))
	for n := range snap.Cards {
		networks = append(networks, n)
	}
	sort.Strings(networks)
	for _, n := range networks {
		rows = append(rows, row("card", n, amount(snap.Cards[n].Total)))
	}

	rows = append(rows,
		row("projected", string(core.Income), amount(snap.Projected.Income)),
		row("projected", string(core.Expense), amount(snap.Projected.Expense)),
		row("total_commitments", "", amount(snap.TotalCommitments)),
		row("projected_balance", "", amount(snap.ProjectedBalance)),
		row("health", snap.HealthStatus, strconv.Itoa(snap.HealthScore)),
	)
	if len(snap.Degraded) > 0 {
		rows = append(rows, row("degraded", strings.Join(snap.Degraded, ","), ""))
	}
	return rows
}

func amount(m core.Money) string {
	return m.Decimal().StringFixed(2)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
