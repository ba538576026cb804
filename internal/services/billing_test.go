package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impegni/internal/amqp"
	"impegni/internal/core"
)

func TestClassify(t *testing.T) {
	repo := newStore(t)
	svc := NewBillingService(repo, nil)
	ctx := context.Background()

	_, err := svc.ConfigureBillingPeriod(ctx, "alice", period(2025, 4), core.NewDate(2025, 3, 18), core.NewDate(2025, 4, 17))
	require.NoError(t, err)

	tests := []struct {
		name  string
		owner string
		date  core.Date
		want  core.Period
	}{
		{"before cutoff", "bob", core.NewDate(2025, 3, 21), period(2025, 4)},
		{"on cutoff", "bob", core.NewDate(2025, 3, 22), period(2025, 5)},
		{"december rolls over", "bob", core.NewDate(2025, 12, 25), period(2026, 2)},
		{"explicit period wins", "alice", core.NewDate(2025, 3, 25), period(2025, 4)},
		{"explicit start inclusive", "alice", core.NewDate(2025, 3, 18), period(2025, 4)},
		{"explicit end inclusive", "alice", core.NewDate(2025, 4, 17), period(2025, 4)},
		{"outside explicit range", "alice", core.NewDate(2025, 4, 18), period(2025, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Classify(ctx, tt.owner, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBillingPeriods(t *testing.T) {
	svc := NewBillingService(newStore(t), nil)
	ctx := context.Background()

	periods, err := svc.BillingPeriods(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, periods)
	assert.NotNil(t, periods)

	for _, m := range []int{5, 4} {
		_, err := svc.ConfigureBillingPeriod(ctx, "alice", period(2025, m),
			core.NewDate(2025, m-1, 18), core.NewDate(2025, m, 17))
		require.NoError(t, err)
	}

	periods, err = svc.BillingPeriods(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, period(2025, 4), periods[0].Period)
	assert.Equal(t, period(2025, 5), periods[1].Period)

	_, err = svc.BillingPeriods(ctx, "")
	assert.True(t, core.IsValidation(err))
}

func TestConfigureBillingPeriodRejectsInvertedRange(t *testing.T) {
	svc := NewBillingService(newStore(t), nil)

	_, err := svc.ConfigureBillingPeriod(context.Background(), "alice", period(2025, 4),
		core.NewDate(2025, 4, 17), core.NewDate(2025, 3, 18))

	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "end", ve.Field)
}

func TestIngestAndRecalculate(t *testing.T) {
	repo := newStore(t)
	pub := &recordingPublisher{}
	svc := NewBillingService(repo, pub)
	ctx := context.Background()

	txs, err := svc.IngestTransactions(ctx, "alice", "Visa", []StatementRow{
		{Date: core.NewDate(2025, 3, 10), Description: "Books", Amount: core.Money{Cents: 2500}},
		{Date: core.NewDate(2025, 3, 23), Description: "Dinner", Amount: core.Money{Cents: 6000}, Direction: "debit"},
		{Date: core.NewDate(2025, 3, 28), Description: "Card payment", Amount: core.Money{Cents: 10000}, Direction: "credit"},
	})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, period(2025, 4), txs[0].Billing)
	assert.Equal(t, period(2025, 5), txs[1].Billing)
	assert.Equal(t, core.Payment, txs[2].Type)
	assert.Equal(t, "visa", txs[2].Network)

	_, err = svc.RecalculateBillingPeriod(ctx, "alice", period(2025, 4))
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = svc.ConfigureBillingPeriod(ctx, "alice", period(2025, 4), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	require.NoError(t, err)

	n, err := svc.RecalculateBillingPeriod(ctx, "alice", period(2025, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	april, err := repo.ListUnbilledTransactions(ctx, "alice", period(2025, 4))
	require.NoError(t, err)
	assert.Len(t, april, 3)

	closed, err := svc.MarkBilled(ctx, "alice", "VISA", period(2025, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(3), closed)

	assert.Equal(t, []amqp.EventType{amqp.BillingRecalculated, amqp.StatementClosed}, pub.types())
}

func TestIngestValidatesEveryRowFirst(t *testing.T) {
	repo := newStore(t)
	svc := NewBillingService(repo, nil)
	ctx := context.Background()

	_, err := svc.IngestTransactions(ctx, "alice", "visa", []StatementRow{
		{Date: core.NewDate(2025, 3, 10), Description: "Books", Amount: core.Money{Cents: 2500}},
		{Date: core.NewDate(2025, 3, 11), Description: "Refund?", Amount: core.Money{Cents: 100}, Direction: "sideways"},
	})
	require.True(t, core.IsValidation(err))
	assert.Contains(t, err.Error(), "row 2")

	stored, err := repo.ListUnbilledTransactions(ctx, "alice", period(2025, 4))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecordInternationalCharge(t *testing.T) {
	repo := newStore(t)
	svc := NewBillingService(repo, nil)
	ctx := context.Background()

	c, err := svc.RecordInternationalCharge(ctx, "alice", InternationalInput{
		Network:       "mastercard",
		Date:          core.NewDate(2025, 6, 30),
		Description:   "Hotel",
		Currency:      "usd",
		ForeignAmount: decimal.RequireFromString("120.00"),
		Rate:          decimal.RequireFromString("0.9145"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10974), c.Local.Cents)
	assert.Equal(t, "USD", c.Currency)
	assert.Equal(t, period(2025, 8), c.Billing)

	_, err = svc.RecordInternationalCharge(ctx, "alice", InternationalInput{
		Network:       "mastercard",
		Date:          core.NewDate(2025, 6, 30),
		Description:   "Hotel",
		Currency:      "USD",
		ForeignAmount: decimal.RequireFromString("120.00"),
		Rate:          decimal.Zero,
	})
	assert.True(t, core.IsValidation(err))
}

func TestSetCheckingBalance(t *testing.T) {
	svc := NewCheckingService(newStore(t))
	ctx := context.Background()

	_, err := svc.SetCheckingBalance(ctx, "alice", period(2025, 6), core.Money{Cents: -4200})
	require.NoError(t, err)

	got, err := svc.Balance(ctx, "alice", period(2025, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(-4200), got.Cents)

	_, err = svc.SetCheckingBalance(ctx, "", period(2025, 6), core.Money{})
	assert.True(t, core.IsValidation(err))
}
