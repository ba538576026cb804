package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"impegni/internal/core"
)

const occurrenceColumns = `id, template_id, owner, kind, year, month, occurs_on, label, direction,
	amount_cents, category_id, notes, active, is_override, seq_no, network`

func scanOccurrence(s scanner) (core.Occurrence, error) {
	var (
		o         core.Occurrence
		kind, dir string
		date      string
		category  sql.NullInt64
		seq       sql.NullInt64
	)
	err := s.Scan(&o.ID, &o.TemplateID, &o.Owner, &kind, &o.Period.Year, &o.Period.Month, &date,
		&o.Label, &dir, &o.Amount.Cents, &category, &o.Notes, &o.Active, &o.Override, &seq, &o.Network)
	if err != nil {
		return core.Occurrence{}, err
	}
	if o.Date, err = parseStoredDate(date); err != nil {
		return core.Occurrence{}, err
	}
	o.Kind = core.Kind(kind)
	o.Direction = core.Direction(dir)
	o.CategoryID = idPtr(category)
	if seq.Valid {
		n := int(seq.Int64)
		o.Sequence = &n
	}
	return o, nil
}

func nullableSeq(seq *int) any {
	if seq == nil {
		return nil
	}
	return *seq
}

// insertOccurrence inserts o unless the template already has an
// occurrence for o's period. It reports whether a row was created and the
// id of the new row (zero when none was created).
func (q *Queries) insertOccurrence(ctx context.Context, o core.Occurrence) (int64, bool, error) {
	var id int64
	err := q.queryRow(ctx, `INSERT INTO occurrences (template_id, owner, kind, year, month, occurs_on,
		label, direction, amount_cents, category_id, notes, active, is_override, seq_no, network)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (template_id, year, month) DO NOTHING
		RETURNING id`,
		o.TemplateID, o.Owner, string(o.Kind), o.Period.Year, o.Period.Month, o.Date.String(),
		o.Label, string(o.Direction), o.Amount.Cents, nullableID(o.CategoryID), o.Notes,
		o.Active, o.Override, nullableSeq(o.Sequence), o.Network,
	).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert occurrence: %w", err)
	}
	return id, true, nil
}

func (q *Queries) getOccurrence(ctx context.Context, owner string, id int64) (core.Occurrence, error) {
	row := q.queryRow(ctx, `SELECT `+occurrenceColumns+` FROM occurrences WHERE id = ? AND owner = ?`, id, owner)
	o, err := scanOccurrence(row)
	if isNoRows(err) {
		return core.Occurrence{}, core.NotFound("occurrence", id)
	}
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

// propagateToOccurrences copies the set fields of patch onto every
// non-overridden occurrence of the template at or after from.
func (q *Queries) propagateToOccurrences(ctx context.Context, owner string, templateID int64, from core.Period, patch core.OccurrencePatch) (int64, error) {
	var (
		sets []string
		args []any
	)
	if patch.Label.Set {
		sets = append(sets, "label = ?")
		args = append(args, patch.Label.Value)
	}
	if patch.Direction.Set {
		sets = append(sets, "direction = ?")
		args = append(args, string(patch.Direction.Value))
	}
	if patch.Amount.Set {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Value.Cents)
	}
	if patch.CategoryID.Set {
		sets = append(sets, "category_id = ?")
		args = append(args, nullableID(patch.CategoryID.Value))
	}
	if patch.Notes.Set {
		sets = append(sets, "notes = ?")
		args = append(args, patch.Notes.Value)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, templateID, owner, false)
	args = append(args, forwardArgs(from)...)

	res, err := q.exec(ctx, `UPDATE occurrences SET `+strings.Join(sets, ", ")+`
		WHERE template_id = ? AND owner = ? AND is_override = ? AND `+forwardClause, args...)
	if err != nil {
		return 0, fmt.Errorf("propagate template change: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("propagate template change: %w", err)
	}
	return n, nil
}

// InsertOccurrence stores o if its (template, period) slot is still free.
// A taken slot is not an error: created is false and the stored occurrence
// is left untouched.
func (r *Repository) InsertOccurrence(ctx context.Context, o core.Occurrence) (bool, error) {
	id, created, err := r.queries.insertOccurrence(ctx, o)
	if err != nil {
		return false, err
	}
	if created {
		slog.DebugContext(ctx, "Occurrence materialized",
			"id", id,
			"template_id", o.TemplateID,
			"period", o.Period.String())
	}
	return created, nil
}

// CreateOverride stores o as an explicit single-month occurrence. When the
// slot is already taken the existing occurrence is patched instead and
// marked as overridden. Either way the stored occurrence is returned.
func (r *Repository) CreateOverride(ctx context.Context, o core.Occurrence, patch core.OccurrencePatch) (core.Occurrence, error) {
	var out core.Occurrence
	err := r.withTx(ctx, func(q *Queries) error {
		patched := o
		patch.Apply(&patched)
		patched.Override = true

		id, created, err := q.insertOccurrence(ctx, patched)
		if err != nil {
			return err
		}
		if created {
			patched.ID = id
			out = patched
			return nil
		}

		existing, err := q.getOccurrenceFor(ctx, o.Owner, o.TemplateID, o.Period)
		if err != nil {
			return err
		}
		patch.Apply(&existing)
		existing.Override = true
		if err := q.updateOccurrence(ctx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return core.Occurrence{}, err
	}

	slog.InfoContext(ctx, "Occurrence override saved",
		"id", out.ID,
		"template_id", out.TemplateID,
		"period", out.Period.String())

	return out, nil
}

func (q *Queries) getOccurrenceFor(ctx context.Context, owner string, templateID int64, p core.Period) (core.Occurrence, error) {
	row := q.queryRow(ctx, `SELECT `+occurrenceColumns+` FROM occurrences
		WHERE template_id = ? AND owner = ? AND year = ? AND month = ?`, templateID, owner, p.Year, p.Month)
	o, err := scanOccurrence(row)
	if isNoRows(err) {
		return core.Occurrence{}, core.NotFound("occurrence", fmt.Sprintf("%d/%s", templateID, p))
	}
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

func (q *Queries) updateOccurrence(ctx context.Context, o core.Occurrence) error {
	_, err := q.exec(ctx, `UPDATE occurrences
		SET occurs_on = ?, label = ?, direction = ?, amount_cents = ?, category_id = ?, notes = ?,
			active = ?, is_override = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner = ?`,
		o.Date.String(), o.Label, string(o.Direction), o.Amount.Cents, nullableID(o.CategoryID), o.Notes,
		o.Active, o.Override, o.ID, o.Owner)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}
	return nil
}

func (r *Repository) GetOccurrence(ctx context.Context, owner string, id int64) (core.Occurrence, error) {
	return r.queries.getOccurrence(ctx, owner, id)
}

// ListOccurrences returns every occurrence of the owner in the period,
// ordered by date then id.
func (r *Repository) ListOccurrences(ctx context.Context, owner string, p core.Period) ([]core.Occurrence, error) {
	return r.listOccurrences(ctx, `owner = ? AND year = ? AND month = ?`, owner, p.Year, p.Month)
}

// ListOccurrencesByKind is ListOccurrences restricted to one template kind.
func (r *Repository) ListOccurrencesByKind(ctx context.Context, owner string, p core.Period, kind core.Kind) ([]core.Occurrence, error) {
	return r.listOccurrences(ctx, `owner = ? AND year = ? AND month = ? AND kind = ?`, owner, p.Year, p.Month, string(kind))
}

// ListTemplateOccurrences returns the occurrences of one template in
// period order.
func (r *Repository) ListTemplateOccurrences(ctx context.Context, owner string, templateID int64) ([]core.Occurrence, error) {
	return r.listOccurrences(ctx, `owner = ? AND template_id = ?`, owner, templateID)
}

func (r *Repository) listOccurrences(ctx context.Context, where string, args ...any) ([]core.Occurrence, error) {
	rows, err := r.queries.query(ctx, `SELECT `+occurrenceColumns+` FROM occurrences
		WHERE `+where+` ORDER BY year, month, occurs_on, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return out, nil
}

// UpdateOccurrence applies patch to a single occurrence and marks it as
// overridden so later template edits skip it.
func (r *Repository) UpdateOccurrence(ctx context.Context, owner string, id int64, patch core.OccurrencePatch) (core.Occurrence, error) {
	var o core.Occurrence
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		o, err = q.getOccurrence(ctx, owner, id)
		if err != nil {
			return err
		}
		patch.Apply(&o)
		o.Override = true
		return q.updateOccurrence(ctx, o)
	})
	if err != nil {
		return core.Occurrence{}, err
	}

	slog.InfoContext(ctx, "Occurrence updated",
		"id", id,
		"owner", owner,
		"template_id", o.TemplateID,
		"period", o.Period.String())

	return o, nil
}

// DeleteOccurrence removes a single occurrence; its template is untouched.
func (r *Repository) DeleteOccurrence(ctx context.Context, owner string, id int64) error {
	res, err := r.queries.exec(ctx, `DELETE FROM occurrences WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}
	if n == 0 {
		return core.NotFound("occurrence", id)
	}

	slog.InfoContext(ctx, "Occurrence deleted", "id", id, "owner", owner)
	return nil
}
