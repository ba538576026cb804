// Package services implements the commitment operations on top of the
// store: materialization, overrides, forward-scoped edits and deletes,
// billing classification and the health summary.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"impegni/internal/amqp"
	"impegni/internal/categories"
	"impegni/internal/core"
	"impegni/internal/storage"
)

// CommitmentStore is the persistence the commitment service needs.
type CommitmentStore interface {
	CreateTemplate(ctx context.Context, t core.Template, occurrences []core.Occurrence) (core.Template, error)
	GetTemplate(ctx context.Context, owner string, id int64) (core.Template, error)
	ListTemplates(ctx context.Context, owner string, kind core.Kind) ([]core.Template, error)
	UpdateTemplateForward(ctx context.Context, owner string, id int64, from core.Period, patch core.TemplatePatch) (core.Template, int64, error)
	DeleteTemplateForward(ctx context.Context, owner string, id int64, from core.Period) (storage.ForwardDeleteResult, error)

	InsertOccurrence(ctx context.Context, o core.Occurrence) (bool, error)
	CreateOverride(ctx context.Context, o core.Occurrence, patch core.OccurrencePatch) (core.Occurrence, error)
	GetOccurrence(ctx context.Context, owner string, id int64) (core.Occurrence, error)
	ListOccurrences(ctx context.Context, owner string, p core.Period) ([]core.Occurrence, error)
	UpdateOccurrence(ctx context.Context, owner string, id int64, patch core.OccurrencePatch) (core.Occurrence, error)
	DeleteOccurrence(ctx context.Context, owner string, id int64) error
}

// TemplateInput describes a new template.
type TemplateInput struct {
	Owner     string         `json:"owner"`
	Kind      core.Kind      `json:"kind"`
	Name      string         `json:"name"`
	Direction core.Direction `json:"direction"`
	Amount    core.Money     `json:"amount"`
	DueDay    int            `json:"due_day"`
	Start     core.Period    `json:"start"`
	Repeat    bool           `json:"repeat"`

	InstallmentAmount core.Money `json:"installment_amount"`
	TotalInstallments int        `json:"total_installments"`
	StartInstallment  int        `json:"start_installment"`
	Network           string     `json:"network"`

	CategoryID *int64 `json:"category_id"`
	Notes      string `json:"notes"`
}

// Template builds the template described by in. Installment plans default
// to starting at installment 1, and their total amount to the sum of the
// installments.
func (in TemplateInput) Template() core.Template {
	t := core.Template{
		Owner:             in.Owner,
		Kind:              in.Kind,
		Name:              in.Name,
		Direction:         in.Direction,
		Amount:            in.Amount,
		DueDay:            in.DueDay,
		Start:             in.Start,
		Repeat:            in.Repeat,
		InstallmentAmount: in.InstallmentAmount,
		TotalInstallments: in.TotalInstallments,
		StartInstallment:  in.StartInstallment,
		Network:           core.NormalizeNetwork(in.Network),
		CategoryID:        in.CategoryID,
		Notes:             in.Notes,
		Active:            true,
	}
	if t.Kind == core.Installment {
		if t.StartInstallment == 0 {
			t.StartInstallment = 1
		}
		if t.Amount.Cents == 0 {
			t.Amount = core.Money{Cents: t.InstallmentAmount.Cents * int64(t.TotalInstallments)}
		}
		t.Repeat = false
	} else {
		t.Network = ""
	}
	return t
}

// CommitmentService owns templates and their occurrences.
type CommitmentService struct {
	store      CommitmentStore
	categories categories.Directory
	events     EventPublisher
}

// NewCommitmentService wires the service. dir and events may be nil: no
// category check is made without a directory, and no events are sent
// without a publisher.
func NewCommitmentService(store CommitmentStore, dir categories.Directory, events EventPublisher) *CommitmentService {
	return &CommitmentService{
		store:      store,
		categories: dir,
		events:     events,
	}
}

// CreateTemplate validates and stores a template. Installment plans are
// stored with their whole schedule in the same transaction.
func (s *CommitmentService) CreateTemplate(ctx context.Context, in TemplateInput) (core.Template, error) {
	t := in.Template()
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if err := categories.Validate(ctx, s.categories, t.Owner, t.CategoryID); err != nil {
		return core.Template{}, err
	}

	var occurrences []core.Occurrence
	if t.Kind == core.Installment {
		occurrences = t.Occurrences()
	}

	stored, err := s.store.CreateTemplate(ctx, t, occurrences)
	if err != nil {
		return core.Template{}, fmt.Errorf("create template: %w", err)
	}

	publishEvent(ctx, s.events, amqp.NewCommitmentEvent(amqp.TemplateCreated, stored.Owner, stored.ID))
	return stored, nil
}

// Materialize stores the occurrence t contributes to p, if any and if not
// already stored. It reports whether a new occurrence was created; an
// existing one is never an error.
func (s *CommitmentService) Materialize(ctx context.Context, t core.Template, p core.Period) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	o, ok := t.OccurrenceFor(p)
	if !ok {
		return false, nil
	}
	created, err := s.store.InsertOccurrence(ctx, o)
	if err != nil {
		return false, fmt.Errorf("materialize template %d for %s: %w", t.ID, p, err)
	}
	return created, nil
}

// MaterializeAndList materializes every active recurring template of the
// owner for p and returns all of the owner's occurrences in p, ordered by
// date then id.
func (s *CommitmentService) MaterializeAndList(ctx context.Context, owner string, p core.Period) ([]core.Occurrence, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	templates, err := s.store.ListTemplates(ctx, owner, core.Recurring)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}

	created := 0
	for _, t := range templates {
		ok, err := s.Materialize(ctx, t, p)
		if err != nil {
			return nil, err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		slog.InfoContext(ctx, "Occurrences materialized",
			"owner", owner,
			"period", p.String(),
			"created", created)
	}

	occurrences, err := s.store.ListOccurrences(ctx, owner, p)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return occurrences, nil
}

// CreateOccurrenceOverride creates (or, when the month is already stored,
// patches) a single-month occurrence flagged as overridden. Unlike lazy
// materialization it works for non-repeating templates too, but only for
// months in [Start, ClosedFrom).
func (s *CommitmentService) CreateOccurrenceOverride(ctx context.Context, owner string, templateID int64, p core.Period, patch core.OccurrencePatch) (core.Occurrence, error) {
	if err := requireOwner(owner); err != nil {
		return core.Occurrence{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Occurrence{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.Occurrence{}, err
	}
	if patch.CategoryID.Set {
		if err := categories.Validate(ctx, s.categories, owner, patch.CategoryID.Value); err != nil {
			return core.Occurrence{}, err
		}
	}

	t, err := s.store.GetTemplate(ctx, owner, templateID)
	if err != nil {
		return core.Occurrence{}, err
	}
	base, ok := t.OverrideFor(p)
	if !ok {
		return core.Occurrence{}, core.Invalid("period", fmt.Sprintf("period %s is outside the schedule of template %d", p, templateID))
	}

	o, err := s.store.CreateOverride(ctx, base, patch)
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("create override: %w", err)
	}

	e := amqp.NewCommitmentEvent(amqp.OccurrenceUpdated, owner, o.ID)
	e.Period = p.String()
	publishEvent(ctx, s.events, e)
	return o, nil
}

// EditOccurrence changes a single occurrence and freezes it against later
// template propagation.
func (s *CommitmentService) EditOccurrence(ctx context.Context, owner string, id int64, patch core.OccurrencePatch) (core.Occurrence, error) {
	if err := requireOwner(owner); err != nil {
		return core.Occurrence{}, err
	}
	if patch.Empty() {
		return core.Occurrence{}, core.Invalid("patch", "no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return core.Occurrence{}, err
	}
	if patch.CategoryID.Set {
		if err := categories.Validate(ctx, s.categories, owner, patch.CategoryID.Value); err != nil {
			return core.Occurrence{}, err
		}
	}

	o, err := s.store.UpdateOccurrence(ctx, owner, id, patch)
	if err != nil {
		return core.Occurrence{}, err
	}

	e := amqp.NewCommitmentEvent(amqp.OccurrenceUpdated, owner, o.ID)
	e.Period = o.Period.String()
	publishEvent(ctx, s.events, e)
	return o, nil
}

// EditTemplateForward updates the template and every non-overridden
// occurrence from `from` on, in one transaction. It returns the number of
// occurrences changed. Occurrences before `from` and overridden ones keep
// their values; the active flag is never propagated.
func (s *CommitmentService) EditTemplateForward(ctx context.Context, owner string, id int64, from core.Period, patch core.TemplatePatch) (int64, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if patch.Empty() {
		return 0, core.Invalid("patch", "no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	if patch.CategoryID.Set {
		if err := categories.Validate(ctx, s.categories, owner, patch.CategoryID.Value); err != nil {
			return 0, err
		}
	}

	_, n, err := s.store.UpdateTemplateForward(ctx, owner, id, from, patch)
	if err != nil {
		return 0, err
	}

	e := amqp.NewCommitmentEvent(amqp.TemplateUpdated, owner, id)
	e.Period = from.String()
	e.Affected = n
	publishEvent(ctx, s.events, e)
	return n, nil
}

// DeleteTemplateForward deletes the template's occurrences from `from` on.
// The template is removed when nothing earlier remains, and closed at
// `from` otherwise.
func (s *CommitmentService) DeleteTemplateForward(ctx context.Context, owner string, id int64, from core.Period) (storage.ForwardDeleteResult, error) {
	if err := requireOwner(owner); err != nil {
		return storage.ForwardDeleteResult{}, err
	}
	if err := from.Validate(); err != nil {
		return storage.ForwardDeleteResult{}, err
	}

	res, err := s.store.DeleteTemplateForward(ctx, owner, id, from)
	if err != nil {
		return storage.ForwardDeleteResult{}, err
	}

	e := amqp.NewCommitmentEvent(amqp.TemplateDeleted, owner, id)
	e.Period = from.String()
	e.Affected = res.Deleted
	publishEvent(ctx, s.events, e)
	return res, nil
}

// DeleteOccurrence removes one occurrence. A repeating template will
// materialize that month again on the next read; set active=false with
// EditOccurrence to skip a month instead.
func (s *CommitmentService) DeleteOccurrence(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := s.store.DeleteOccurrence(ctx, owner, id); err != nil {
		return err
	}

	publishEvent(ctx, s.events, amqp.NewCommitmentEvent(amqp.OccurrenceDeleted, owner, id))
	return nil
}

// GetTemplate returns one of the owner's templates.
func (s *CommitmentService) GetTemplate(ctx context.Context, owner string, id int64) (core.Template, error) {
	if err := requireOwner(owner); err != nil {
		return core.Template{}, err
	}
	return s.store.GetTemplate(ctx, owner, id)
}
