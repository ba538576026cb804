package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"impegni/internal/core"
)

// HealthStore is the read-only view the aggregator works from.
type HealthStore interface {
	CheckingBalance(ctx context.Context, owner string, p core.Period) (core.Money, error)
	ListUnbilledTransactions(ctx context.Context, owner string, p core.Period) ([]core.CardTransaction, error)
	ListUnbilledInternational(ctx context.Context, owner string, p core.Period) ([]core.InternationalCharge, error)
	ListOccurrencesByKind(ctx context.Context, owner string, p core.Period, kind core.Kind) ([]core.Occurrence, error)
	ListTemplates(ctx context.Context, owner string, kind core.Kind) ([]core.Template, error)
}

// Names of the best-effort sub-fetches reported in HealthSnapshot.Degraded.
const (
	FetchChecking      = "checking"
	FetchInstallments  = "installments"
	FetchInternational = "international"
	FetchProjected     = "projected"
)

// HealthAggregator computes the monthly health snapshot. It never writes.
type HealthAggregator struct {
	store HealthStore
	clock Clock
}

func NewHealthAggregator(store HealthStore, clock Clock) *HealthAggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &HealthAggregator{store: store, clock: clock}
}

// Summarize builds the snapshot of target for owner. The unbilled card
// transactions are required; the checking balance, installments, foreign
// charges and projected occurrences are fetched best effort and count as
// zero, listed in Degraded, when their read fails.
func (a *HealthAggregator) Summarize(ctx context.Context, owner string, target core.Period) (core.HealthSnapshot, error) {
	if err := requireOwner(owner); err != nil {
		return core.HealthSnapshot{}, err
	}
	if err := target.Validate(); err != nil {
		return core.HealthSnapshot{}, err
	}

	var (
		checking      core.Money
		unbilled      []core.CardTransaction
		installments  []core.Occurrence
		international []core.InternationalCharge
		projected     []core.Occurrence

		mu       sync.Mutex
		degraded []string
	)
	degrade := func(name string, err error) {
		slog.WarnContext(ctx, "Health sub-fetch failed, counting as zero",
			"owner", owner,
			"target", target.String(),
			"fetch", name,
			"error", err)
		mu.Lock()
		degraded = append(degraded, name)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		unbilled, err = a.store.ListUnbilledTransactions(gctx, owner, target)
		if err != nil {
			return fmt.Errorf("list unbilled transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// the balance available now, not the target month's
		balance, err := a.store.CheckingBalance(gctx, owner, core.PeriodOf(a.clock.Now()))
		if err != nil {
			degrade(FetchChecking, err)
			return nil
		}
		checking = balance
		return nil
	})
	g.Go(func() error {
		occs, err := a.store.ListOccurrencesByKind(gctx, owner, target, core.Installment)
		if err != nil {
			degrade(FetchInstallments, err)
			return nil
		}
		installments = occs
		return nil
	})
	g.Go(func() error {
		charges, err := a.store.ListUnbilledInternational(gctx, owner, target)
		if err != nil {
			degrade(FetchInternational, err)
			return nil
		}
		international = charges
		return nil
	})
	g.Go(func() error {
		occs, err := a.projectedRecurring(gctx, owner, target)
		if err != nil {
			degrade(FetchProjected, err)
			return nil
		}
		projected = occs
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.HealthSnapshot{}, fmt.Errorf("summarize %s: %w", target, err)
	}

	snap := core.HealthSnapshot{
		Owner:           owner,
		Target:          target,
		CheckingBalance: checking,
		Cards:           make(map[string]core.NetworkTotals),
		Projected:       core.Projected{Detail: []core.ProjectedItem{}},
		Degraded:        degraded,
	}
	sort.Strings(snap.Degraded)

	for _, t := range unbilled {
		totals := snap.Cards[t.Network]
		if t.Type == core.Payment {
			totals.Payments.Cents += t.Amount.Cents
		} else {
			totals.Unbilled.Cents += t.Amount.Cents
		}
		snap.Cards[t.Network] = totals
	}
	for _, c := range international {
		totals := snap.Cards[c.Network]
		totals.International.Cents += c.Local.Cents
		snap.Cards[c.Network] = totals
	}
	for _, o := range installments {
		if !o.Active {
			continue
		}
		// card plans are charged through the card statement; the rest are
		// paid from the checking account like any other commitment
		if o.Network != "" && o.Direction == core.Expense {
			totals := snap.Cards[o.Network]
			totals.Installments.Cents += o.Amount.Cents
			snap.Cards[o.Network] = totals
			continue
		}
		addProjected(&snap.Projected, o)
	}
	for _, o := range projected {
		if o.Active {
			addProjected(&snap.Projected, o)
		}
	}

	snap.Finalize()

	slog.InfoContext(ctx, "Health summary computed",
		"owner", owner,
		"target", target.String(),
		"score", snap.HealthScore,
		"status", snap.HealthStatus,
		"degraded", len(snap.Degraded))

	return snap, nil
}

// projectedRecurring returns the recurring occurrences of target: the
// stored ones, plus the one each active template would materialize when
// that month has not been read yet. Nothing is written.
func (a *HealthAggregator) projectedRecurring(ctx context.Context, owner string, target core.Period) ([]core.Occurrence, error) {
	stored, err := a.store.ListOccurrencesByKind(ctx, owner, target, core.Recurring)
	if err != nil {
		return nil, err
	}
	templates, err := a.store.ListTemplates(ctx, owner, core.Recurring)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(stored))
	for _, o := range stored {
		seen[o.TemplateID] = true
	}
	out := stored
	for _, t := range templates {
		if seen[t.ID] {
			continue
		}
		if o, ok := t.OccurrenceFor(target); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func addProjected(p *core.Projected, o core.Occurrence) {
	if o.Direction == core.Income {
		p.Income.Cents += o.Amount.Cents
	} else {
		p.Expense.Cents += o.Amount.Cents
	}
	p.Detail = append(p.Detail, core.ProjectedItem{
		OccurrenceID: o.ID,
		TemplateID:   o.TemplateID,
		Label:        o.Label,
		Direction:    o.Direction,
		Amount:       o.Amount,
		Date:         o.Date,
	})
}
