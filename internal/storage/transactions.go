package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"impegni/internal/core"
)

const cardTransactionColumns = `id, owner, network, tx_date, description, amount_cents, entry_type,
	billing_year, billing_month, billed`

const internationalColumns = `id, owner, network, charge_date, description, currency, foreign_amount,
	rate, local_cents, billing_year, billing_month, billed`

func scanCardTransaction(s scanner) (core.CardTransaction, error) {
	var (
		t         core.CardTransaction
		date, typ string
	)
	err := s.Scan(&t.ID, &t.Owner, &t.Network, &date, &t.Description, &t.Amount.Cents, &typ,
		&t.Billing.Year, &t.Billing.Month, &t.Billed)
	if err != nil {
		return core.CardTransaction{}, err
	}
	if t.Date, err = parseStoredDate(date); err != nil {
		return core.CardTransaction{}, err
	}
	t.Type = core.EntryType(typ)
	return t, nil
}

func scanInternationalCharge(s scanner) (core.InternationalCharge, error) {
	var (
		c             core.InternationalCharge
		date          string
		foreign, rate string
	)
	err := s.Scan(&c.ID, &c.Owner, &c.Network, &date, &c.Description, &c.Currency, &foreign,
		&rate, &c.Local.Cents, &c.Billing.Year, &c.Billing.Month, &c.Billed)
	if err != nil {
		return core.InternationalCharge{}, err
	}
	if c.Date, err = parseStoredDate(date); err != nil {
		return core.InternationalCharge{}, err
	}
	if c.ForeignAmount, err = decimal.NewFromString(foreign); err != nil {
		return core.InternationalCharge{}, fmt.Errorf("parse stored foreign amount %q: %w", foreign, err)
	}
	if c.Rate, err = decimal.NewFromString(rate); err != nil {
		return core.InternationalCharge{}, fmt.Errorf("parse stored rate %q: %w", rate, err)
	}
	return c, nil
}

// InsertCardTransactions stores a batch of classified statement rows in
// one transaction and returns them with their ids.
func (r *Repository) InsertCardTransactions(ctx context.Context, txs []core.CardTransaction) ([]core.CardTransaction, error) {
	out := make([]core.CardTransaction, 0, len(txs))
	err := r.withTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			err := q.queryRow(ctx, `INSERT INTO card_transactions (owner, network, tx_date, description,
				amount_cents, entry_type, billing_year, billing_month, billed)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				t.Owner, t.Network, t.Date.String(), t.Description, t.Amount.Cents, string(t.Type),
				t.Billing.Year, t.Billing.Month, t.Billed,
			).Scan(&t.ID)
			if err != nil {
				return fmt.Errorf("insert card transaction: %w", err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(out) > 0 {
		slog.InfoContext(ctx, "Card transactions saved",
			"owner", out[0].Owner,
			"network", out[0].Network,
			"count", len(out))
	}
	return out, nil
}

// ListUnbilledTransactions returns the owner's card transactions charged to
// p that are not yet on a closed statement.
func (r *Repository) ListUnbilledTransactions(ctx context.Context, owner string, p core.Period) ([]core.CardTransaction, error) {
	rows, err := r.queries.query(ctx, `SELECT `+cardTransactionColumns+` FROM card_transactions
		WHERE owner = ? AND billing_year = ? AND billing_month = ? AND billed = ?
		ORDER BY tx_date, id`, owner, p.Year, p.Month, false)
	if err != nil {
		return nil, fmt.Errorf("list unbilled transactions: %w", err)
	}
	defer rows.Close()

	var out []core.CardTransaction
	for rows.Next() {
		t, err := scanCardTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) InsertInternationalCharge(ctx context.Context, c core.InternationalCharge) (core.InternationalCharge, error) {
	err := r.queries.queryRow(ctx, `INSERT INTO international_charges (owner, network, charge_date,
		description, currency, foreign_amount, rate, local_cents, billing_year, billing_month, billed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		c.Owner, c.Network, c.Date.String(), c.Description, c.Currency, c.ForeignAmount.String(),
		c.Rate.String(), c.Local.Cents, c.Billing.Year, c.Billing.Month, c.Billed,
	).Scan(&c.ID)
	if err != nil {
		return core.InternationalCharge{}, fmt.Errorf("insert international charge: %w", err)
	}

	slog.InfoContext(ctx, "International charge saved",
		"id", c.ID,
		"owner", c.Owner,
		"currency", c.Currency,
		"local_cents", c.Local.Cents)
	return c, nil
}

// ListUnbilledInternational returns the owner's unbilled foreign currency
// charges billed in p.
func (r *Repository) ListUnbilledInternational(ctx context.Context, owner string, p core.Period) ([]core.InternationalCharge, error) {
	rows, err := r.queries.query(ctx, `SELECT `+internationalColumns+` FROM international_charges
		WHERE owner = ? AND billing_year = ? AND billing_month = ? AND billed = ?
		ORDER BY charge_date, id`, owner, p.Year, p.Month, false)
	if err != nil {
		return nil, fmt.Errorf("list unbilled international charges: %w", err)
	}
	defer rows.Close()

	var out []core.InternationalCharge
	for rows.Next() {
		c, err := scanInternationalCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan international charge: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate international charges: %w", err)
	}
	return out, nil
}

// MarkBilled closes the statement of one network for billing month p: its
// card transactions and international charges stop counting as unbilled.
func (r *Repository) MarkBilled(ctx context.Context, owner, network string, p core.Period) (int64, error) {
	var total int64
	err := r.withTx(ctx, func(q *Queries) error {
		for _, table := range []string{"card_transactions", "international_charges"} {
			res, err := q.exec(ctx, `UPDATE `+table+` SET billed = ?
				WHERE owner = ? AND network = ? AND billing_year = ? AND billing_month = ? AND billed = ?`,
				true, owner, network, p.Year, p.Month, false)
			if err != nil {
				return fmt.Errorf("mark %s billed: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("mark %s billed: %w", table, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Statement closed",
		"owner", owner,
		"network", network,
		"period", p.String(),
		"billed", total)
	return total, nil
}
