package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"impegni/internal/core"
	ports "impegni/internal/sheets"
)

// Store is an in-process exporter that keeps the rows it would have
// written, keyed by sheet name. Used when no spreadsheet is configured.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
	now    func() time.Time
}

var _ ports.Exporter = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for the Exported At column.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{sheets: make(map[string][][]string), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ExportOccurrences(_ context.Context, owner string, p core.Period, occs []core.Occurrence) (string, error) {
	return s.append(fmt.Sprintf("%d occurrences", p.Year), ports.OccurrenceRows(owner, occs, s.now())), nil
}

func (s *Store) ExportSnapshot(_ context.Context, snap core.HealthSnapshot) (string, error) {
	return s.append(fmt.Sprintf("%d health", snap.Target.Year), ports.SnapshotRows(snap, s.now())), nil
}

// Rows returns a copy of the rows appended to sheet.
func (s *Store) Rows(sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.sheets[sheet]...)
}

// append returns a synthetic reference "mem:<sheet>!<first>:<last>" with
// 1-based row numbers.
func (s *Store) append(sheet string, rows [][]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.sheets[sheet]) + 1
	s.sheets[sheet] = append(s.sheets[sheet], rows...)
	return fmt.Sprintf("mem:%s!%d:%d", sheet, first, len(s.sheets[sheet]))
}
