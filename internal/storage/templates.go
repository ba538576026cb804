package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"impegni/internal/core"
)

const templateColumns = `id, owner, kind, name, direction, amount_cents, due_day,
	start_year, start_month, repeat_monthly, installment_amount_cents,
	total_installments, start_installment, network, category_id, notes, active,
	closed_from_year, closed_from_month`

// ForwardDeleteResult reports what a forward-scoped template delete did.
type ForwardDeleteResult struct {
	Deleted         int64 `json:"deleted"`
	TemplateRemoved bool  `json:"template_removed"`
}

func scanTemplate(s scanner) (core.Template, error) {
	var (
		t          core.Template
		kind, dir  string
		category   sql.NullInt64
		closedYear sql.NullInt64
		closedMon  sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.Owner, &kind, &t.Name, &dir, &t.Amount.Cents, &t.DueDay,
		&t.Start.Year, &t.Start.Month, &t.Repeat, &t.InstallmentAmount.Cents,
		&t.TotalInstallments, &t.StartInstallment, &t.Network, &category, &t.Notes, &t.Active,
		&closedYear, &closedMon)
	if err != nil {
		return core.Template{}, err
	}
	t.Kind = core.Kind(kind)
	t.Direction = core.Direction(dir)
	t.CategoryID = idPtr(category)
	if closedYear.Valid && closedMon.Valid {
		t.ClosedFrom = &core.Period{Year: int(closedYear.Int64), Month: int(closedMon.Int64)}
	}
	return t, nil
}

func (q *Queries) insertTemplate(ctx context.Context, t core.Template) (int64, error) {
	var id int64
	err := q.queryRow(ctx, `INSERT INTO templates (owner, kind, name, direction, amount_cents, due_day,
		start_year, start_month, repeat_monthly, installment_amount_cents, total_installments,
		start_installment, network, category_id, notes, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.Owner, string(t.Kind), t.Name, string(t.Direction), t.Amount.Cents, t.DueDay,
		t.Start.Year, t.Start.Month, t.Repeat, t.InstallmentAmount.Cents, t.TotalInstallments,
		t.StartInstallment, t.Network, nullableID(t.CategoryID), t.Notes, t.Active,
	).Scan(&id)
	return id, err
}

func (q *Queries) getTemplate(ctx context.Context, owner string, id int64) (core.Template, error) {
	row := q.queryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ? AND owner = ?`, id, owner)
	t, err := scanTemplate(row)
	if isNoRows(err) {
		return core.Template{}, core.NotFound("template", id)
	}
	if err != nil {
		return core.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (q *Queries) updateTemplateFields(ctx context.Context, t core.Template) error {
	_, err := q.exec(ctx, `UPDATE templates
		SET name = ?, direction = ?, amount_cents = ?, installment_amount_cents = ?,
			category_id = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner = ?`,
		t.Name, string(t.Direction), t.Amount.Cents, t.InstallmentAmount.Cents,
		nullableID(t.CategoryID), t.Notes, t.ID, t.Owner)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// CreateTemplate stores t together with its pre-computed occurrences in a
// single transaction and returns the stored template.
func (r *Repository) CreateTemplate(ctx context.Context, t core.Template, occurrences []core.Occurrence) (core.Template, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		id, err := q.insertTemplate(ctx, t)
		if err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		t.ID = id
		for _, o := range occurrences {
			o.TemplateID = id
			if _, _, err := q.insertOccurrence(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Template{}, err
	}

	slog.InfoContext(ctx, "Template saved",
		"id", t.ID,
		"owner", t.Owner,
		"kind", t.Kind,
		"occurrences", len(occurrences))

	return t, nil
}

func (r *Repository) GetTemplate(ctx context.Context, owner string, id int64) (core.Template, error) {
	return r.queries.getTemplate(ctx, owner, id)
}

// ListTemplates returns the owner's active templates, optionally filtered
// by kind (empty kind lists all).
func (r *Repository) ListTemplates(ctx context.Context, owner string, kind core.Kind) ([]core.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE owner = ? AND active = ?`
	args := []any{owner, true}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	rows, err := r.queries.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// UpdateTemplateForward applies patch to the template and propagates the
// same fields to its non-overridden occurrences from the given period on.
// Both writes share one transaction. It returns the updated template and
// the number of occurrences changed.
func (r *Repository) UpdateTemplateForward(ctx context.Context, owner string, id int64, from core.Period, patch core.TemplatePatch) (core.Template, int64, error) {
	var (
		t       core.Template
		updated int64
	)
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		t, err = q.getTemplate(ctx, owner, id)
		if err != nil {
			return err
		}
		if err := q.freezeBefore(ctx, t, from); err != nil {
			return err
		}
		patch.Apply(&t)
		if err := q.updateTemplateFields(ctx, t); err != nil {
			return err
		}

		updated, err = q.propagateToOccurrences(ctx, owner, id, from, patch.Occurrence())
		return err
	})
	if err != nil {
		return core.Template{}, 0, err
	}

	slog.InfoContext(ctx, "Template updated forward",
		"id", id,
		"owner", owner,
		"from", from.String(),
		"propagated", updated)

	return t, updated, nil
}

// freezeBefore stores the occurrences a recurring template still owes for
// the months in [Start, from) with its current values, so a later lazy read
// of those months does not pick up a forward edit. Installment plans are
// stored eagerly and need nothing.
func (q *Queries) freezeBefore(ctx context.Context, t core.Template, from core.Period) error {
	if t.Kind != core.Recurring {
		return nil
	}
	for p := t.Start; p.Before(from); p = p.AddMonths(1) {
		if t.ClosedFrom != nil && !p.Before(*t.ClosedFrom) {
			break
		}
		o, ok := t.OccurrenceFor(p)
		if !ok {
			continue
		}
		if _, _, err := q.insertOccurrence(ctx, o); err != nil {
			return fmt.Errorf("freeze %s: %w", p, err)
		}
	}
	return nil
}

// DeleteTemplateForward removes every occurrence at or after from. The
// template itself goes only when no earlier occurrence survives; otherwise
// it is closed at from so later reads never materialize it again.
func (r *Repository) DeleteTemplateForward(ctx context.Context, owner string, id int64, from core.Period) (ForwardDeleteResult, error) {
	var res ForwardDeleteResult
	err := r.withTx(ctx, func(q *Queries) error {
		t, err := q.getTemplate(ctx, owner, id)
		if err != nil {
			return err
		}

		args := append([]any{id, owner}, forwardArgs(from)...)
		result, err := q.exec(ctx, `DELETE FROM occurrences
			WHERE template_id = ? AND owner = ? AND `+forwardClause, args...)
		if err != nil {
			return fmt.Errorf("delete forward occurrences: %w", err)
		}
		if res.Deleted, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("delete forward occurrences: %w", err)
		}

		var remaining int64
		if err := q.queryRow(ctx, `SELECT COUNT(*) FROM occurrences WHERE template_id = ?`, id).Scan(&remaining); err != nil {
			return fmt.Errorf("count remaining occurrences: %w", err)
		}

		if remaining == 0 {
			if _, err := q.exec(ctx, `DELETE FROM templates WHERE id = ? AND owner = ?`, id, owner); err != nil {
				return fmt.Errorf("delete template: %w", err)
			}
			res.TemplateRemoved = true
			return nil
		}

		closing := from
		if t.ClosedFrom != nil && t.ClosedFrom.Before(from) {
			closing = *t.ClosedFrom
		}
		if _, err := q.exec(ctx, `UPDATE templates
			SET closed_from_year = ?, closed_from_month = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND owner = ?`, closing.Year, closing.Month, id, owner); err != nil {
			return fmt.Errorf("close template: %w", err)
		}
		return nil
	})
	if err != nil {
		return ForwardDeleteResult{}, err
	}

	slog.InfoContext(ctx, "Template deleted forward",
		"id", id,
		"owner", owner,
		"from", from.String(),
		"deleted", res.Deleted,
		"template_removed", res.TemplateRemoved)

	return res, nil
}
