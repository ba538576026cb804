package storage

import (
	"context"
	"fmt"
	"log/slog"

	"impegni/internal/core"
)

// SetCheckingBalance records the checking balance of a month, replacing
// any earlier value.
func (r *Repository) SetCheckingBalance(ctx context.Context, b core.CheckingBalance) error {
	_, err := r.queries.exec(ctx, `INSERT INTO checking_balances (owner, year, month, amount_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, year, month) DO UPDATE
		SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`,
		b.Owner, b.Period.Year, b.Period.Month, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("set checking balance: %w", err)
	}

	slog.InfoContext(ctx, "Checking balance saved",
		"owner", b.Owner,
		"period", b.Period.String(),
		"amount_cents", b.Amount.Cents)
	return nil
}

// CheckingBalance returns the balance recorded for p, or zero when none
// was recorded.
func (r *Repository) CheckingBalance(ctx context.Context, owner string, p core.Period) (core.Money, error) {
	var cents int64
	err := r.queries.queryRow(ctx, `SELECT amount_cents FROM checking_balances
		WHERE owner = ? AND year = ? AND month = ?`, owner, p.Year, p.Month).Scan(&cents)
	if isNoRows(err) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get checking balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}
