package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"impegni/internal/amqp"
	"impegni/internal/core"
)

// BillingStore is the persistence the billing service needs.
type BillingStore interface {
	FindBillingPeriod(ctx context.Context, owner string, d core.Date) (core.BillingPeriod, bool, error)
	GetBillingPeriod(ctx context.Context, owner string, p core.Period) (core.BillingPeriod, error)
	UpsertBillingPeriod(ctx context.Context, bp core.BillingPeriod) error
	ListBillingPeriods(ctx context.Context, owner string) ([]core.BillingPeriod, error)
	RestampBillingPeriod(ctx context.Context, bp core.BillingPeriod) (int64, error)
	InsertCardTransactions(ctx context.Context, txs []core.CardTransaction) ([]core.CardTransaction, error)
	InsertInternationalCharge(ctx context.Context, c core.InternationalCharge) (core.InternationalCharge, error)
	MarkBilled(ctx context.Context, owner, network string, p core.Period) (int64, error)
}

// StatementRow is one normalized row of a card statement.
type StatementRow struct {
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	// Direction is expense/debit for charges and income/credit/payment for
	// payments towards the card. Empty means expense.
	Direction string `json:"direction"`
}

func (r StatementRow) entryType() (core.EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(r.Direction)) {
	case "", "expense", "debit":
		return core.Charge, nil
	case "income", "credit", "payment":
		return core.Payment, nil
	}
	return "", core.Invalid("direction", fmt.Sprintf("invalid direction %q: must be expense or income", r.Direction))
}

// InternationalInput describes a foreign currency charge. Rate converts
// one unit of Currency into the local currency.
type InternationalInput struct {
	Network       string          `json:"network"`
	Date          core.Date       `json:"date"`
	Description   string          `json:"description"`
	Currency      string          `json:"currency"`
	ForeignAmount decimal.Decimal `json:"foreign_amount"`
	Rate          decimal.Decimal `json:"rate"`
}

// BillingService assigns card activity to billing months.
type BillingService struct {
	store  BillingStore
	events EventPublisher
}

func NewBillingService(store BillingStore, events EventPublisher) *BillingService {
	return &BillingService{store: store, events: events}
}

// Classify returns the billing month of a purchase made on d: the explicit
// billing period whose range holds d when one is configured, the default
// day-threshold rule otherwise.
func (s *BillingService) Classify(ctx context.Context, owner string, d core.Date) (core.Period, error) {
	if err := requireOwner(owner); err != nil {
		return core.Period{}, err
	}
	if err := d.Validate(); err != nil {
		return core.Period{}, err
	}

	bp, ok, err := s.store.FindBillingPeriod(ctx, owner, d)
	if err != nil {
		return core.Period{}, fmt.Errorf("classify %s: %w", d, err)
	}
	if ok {
		return bp.Period, nil
	}
	return core.DefaultBillingPeriod(d), nil
}

// ConfigureBillingPeriod sets the explicit date range of a billing month.
// Rows already stored keep their stamp until RecalculateBillingPeriod.
func (s *BillingService) ConfigureBillingPeriod(ctx context.Context, owner string, p core.Period, start, end core.Date) (core.BillingPeriod, error) {
	bp := core.BillingPeriod{Owner: owner, Period: p, Start: start, End: end}
	if err := bp.Validate(); err != nil {
		return core.BillingPeriod{}, err
	}
	if err := s.store.UpsertBillingPeriod(ctx, bp); err != nil {
		return core.BillingPeriod{}, fmt.Errorf("configure billing period: %w", err)
	}
	return bp, nil
}

// BillingPeriods lists the owner's explicit billing periods, oldest first.
func (s *BillingService) BillingPeriods(ctx context.Context, owner string) ([]core.BillingPeriod, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	periods, err := s.store.ListBillingPeriods(ctx, owner)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []core.BillingPeriod{}
	}
	return periods, nil
}

// RecalculateBillingPeriod re-stamps every card transaction and foreign
// charge dated inside the configured range of p with p. It is idempotent
// and returns the number of rows stamped.
func (s *BillingService) RecalculateBillingPeriod(ctx context.Context, owner string, p core.Period) (int64, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	bp, err := s.store.GetBillingPeriod(ctx, owner, p)
	if err != nil {
		return 0, err
	}
	n, err := s.store.RestampBillingPeriod(ctx, bp)
	if err != nil {
		return 0, fmt.Errorf("recalculate billing period: %w", err)
	}

	e := amqp.NewCommitmentEvent(amqp.BillingRecalculated, owner, 0)
	e.Period = p.String()
	e.Affected = n
	publishEvent(ctx, s.events, e)
	return n, nil
}

// IngestTransactions classifies and stores statement rows for one card
// network. Every row is validated before anything is stored.
func (s *BillingService) IngestTransactions(ctx context.Context, owner, network string, rows []StatementRow) ([]core.CardTransaction, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	network = core.NormalizeNetwork(network)

	txs := make([]core.CardTransaction, 0, len(rows))
	for i, r := range rows {
		typ, err := r.entryType()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		t := core.CardTransaction{
			Owner:       owner,
			Network:     network,
			Date:        r.Date,
			Description: strings.TrimSpace(r.Description),
			Amount:      r.Amount,
			Type:        typ,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		txs = append(txs, t)
	}

	for i := range txs {
		p, err := s.Classify(ctx, owner, txs[i].Date)
		if err != nil {
			return nil, err
		}
		txs[i].Billing = p
	}

	stored, err := s.store.InsertCardTransactions(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("ingest transactions: %w", err)
	}

	slog.InfoContext(ctx, "Statement ingested",
		"owner", owner,
		"network", network,
		"rows", len(stored))
	return stored, nil
}

// RecordInternationalCharge converts a foreign currency charge with the
// caller's rate, rounding half-up to cents, classifies it and stores it.
func (s *BillingService) RecordInternationalCharge(ctx context.Context, owner string, in InternationalInput) (core.InternationalCharge, error) {
	if err := requireOwner(owner); err != nil {
		return core.InternationalCharge{}, err
	}
	local, err := core.ConvertToLocal(in.ForeignAmount, in.Rate)
	if err != nil {
		return core.InternationalCharge{}, err
	}

	c := core.InternationalCharge{
		Owner:         owner,
		Network:       core.NormalizeNetwork(in.Network),
		Date:          in.Date,
		Description:   strings.TrimSpace(in.Description),
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		ForeignAmount: in.ForeignAmount,
		Rate:          in.Rate,
		Local:         local,
	}
	if err := c.Validate(); err != nil {
		return core.InternationalCharge{}, err
	}
	if c.Billing, err = s.Classify(ctx, owner, c.Date); err != nil {
		return core.InternationalCharge{}, err
	}

	stored, err := s.store.InsertInternationalCharge(ctx, c)
	if err != nil {
		return core.InternationalCharge{}, fmt.Errorf("record international charge: %w", err)
	}
	return stored, nil
}

// MarkBilled closes the statement of network for billing month p.
func (s *BillingService) MarkBilled(ctx context.Context, owner, network string, p core.Period) (int64, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}
	network = core.NormalizeNetwork(network)
	if network == "" {
		return 0, core.ErrEmptyNetwork
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	n, err := s.store.MarkBilled(ctx, owner, network, p)
	if err != nil {
		return 0, fmt.Errorf("mark billed: %w", err)
	}

	e := amqp.NewCommitmentEvent(amqp.StatementClosed, owner, 0)
	e.Period = p.String()
	e.Affected = n
	publishEvent(ctx, s.events, e)
	return n, nil
}
