package storage

import (
	"context"
	"fmt"
	"log/slog"

	"impegni/internal/core"
)

func scanBillingPeriod(s scanner) (core.BillingPeriod, error) {
	var (
		bp         core.BillingPeriod
		start, end string
	)
	if err := s.Scan(&bp.Owner, &bp.Period.Year, &bp.Period.Month, &start, &end); err != nil {
		return core.BillingPeriod{}, err
	}
	var err error
	if bp.Start, err = parseStoredDate(start); err != nil {
		return core.BillingPeriod{}, err
	}
	if bp.End, err = parseStoredDate(end); err != nil {
		return core.BillingPeriod{}, err
	}
	return bp, nil
}

// UpsertBillingPeriod creates or replaces the explicit range of a billing
// month.
func (r *Repository) UpsertBillingPeriod(ctx context.Context, bp core.BillingPeriod) error {
	_, err := r.queries.exec(ctx, `INSERT INTO billing_periods (owner, year, month, period_start, period_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner, year, month) DO UPDATE
		SET period_start = excluded.period_start, period_end = excluded.period_end`,
		bp.Owner, bp.Period.Year, bp.Period.Month, bp.Start.String(), bp.End.String())
	if err != nil {
		return fmt.Errorf("upsert billing period: %w", err)
	}

	slog.InfoContext(ctx, "Billing period saved",
		"owner", bp.Owner,
		"period", bp.Period.String(),
		"start", bp.Start.String(),
		"end", bp.End.String())
	return nil
}

func (r *Repository) GetBillingPeriod(ctx context.Context, owner string, p core.Period) (core.BillingPeriod, error) {
	row := r.queries.queryRow(ctx, `SELECT owner, year, month, period_start, period_end
		FROM billing_periods WHERE owner = ? AND year = ? AND month = ?`, owner, p.Year, p.Month)
	bp, err := scanBillingPeriod(row)
	if isNoRows(err) {
		return core.BillingPeriod{}, core.NotFound("billing period", p.String())
	}
	if err != nil {
		return core.BillingPeriod{}, fmt.Errorf("get billing period: %w", err)
	}
	return bp, nil
}

// FindBillingPeriod returns the explicit billing period whose range holds
// d. Ranges are expected not to overlap; if they do, the latest billing
// month wins.
func (r *Repository) FindBillingPeriod(ctx context.Context, owner string, d core.Date) (core.BillingPeriod, bool, error) {
	row := r.queries.queryRow(ctx, `SELECT owner, year, month, period_start, period_end
		FROM billing_periods
		WHERE owner = ? AND period_start <= ? AND period_end >= ?
		ORDER BY year DESC, month DESC
		LIMIT 1`, owner, d.String(), d.String())
	bp, err := scanBillingPeriod(row)
	if isNoRows(err) {
		return core.BillingPeriod{}, false, nil
	}
	if err != nil {
		return core.BillingPeriod{}, false, fmt.Errorf("find billing period: %w", err)
	}
	return bp, true, nil
}

// ListBillingPeriods returns every explicit billing period of the owner.
func (r *Repository) ListBillingPeriods(ctx context.Context, owner string) ([]core.BillingPeriod, error) {
	rows, err := r.queries.query(ctx, `SELECT owner, year, month, period_start, period_end
		FROM billing_periods WHERE owner = ? ORDER BY year, month`, owner)
	if err != nil {
		return nil, fmt.Errorf("list billing periods: %w", err)
	}
	defer rows.Close()

	var out []core.BillingPeriod
	for rows.Next() {
		bp, err := scanBillingPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing period: %w", err)
		}
		out = append(out, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing periods: %w", err)
	}
	return out, nil
}

// RestampBillingPeriod stamps the billing month of bp on every card
// transaction and international charge dated inside its range. Both
// updates commit together. It returns the number of rows re-stamped.
func (r *Repository) RestampBillingPeriod(ctx context.Context, bp core.BillingPeriod) (int64, error) {
	var total int64
	err := r.withTx(ctx, func(q *Queries) error {
		res, err := q.exec(ctx, `UPDATE card_transactions
			SET billing_year = ?, billing_month = ?
			WHERE owner = ? AND tx_date >= ? AND tx_date <= ?`,
			bp.Period.Year, bp.Period.Month, bp.Owner, bp.Start.String(), bp.End.String())
		if err != nil {
			return fmt.Errorf("restamp card transactions: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("restamp card transactions: %w", err)
		}
		total += n

		res, err = q.exec(ctx, `UPDATE international_charges
			SET billing_year = ?, billing_month = ?
			WHERE owner = ? AND charge_date >= ? AND charge_date <= ?`,
			bp.Period.Year, bp.Period.Month, bp.Owner, bp.Start.String(), bp.End.String())
		if err != nil {
			return fmt.Errorf("restamp international charges: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("restamp international charges: %w", err)
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Billing period recalculated",
		"owner", bp.Owner,
		"period", bp.Period.String(),
		"restamped", total)
	return total, nil
}
