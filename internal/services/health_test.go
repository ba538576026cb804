package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impegni/internal/core"
)

type fakeHealthStore struct {
	checking      map[core.Period]core.Money
	unbilled      []core.CardTransaction
	international []core.InternationalCharge
	occurrences   map[core.Kind][]core.Occurrence
	templates     []core.Template

	failChecking, failUnbilled, failInternational, failInstallments, failTemplates error
}

func (f *fakeHealthStore) CheckingBalance(_ context.Context, _ string, p core.Period) (core.Money, error) {
	if f.failChecking != nil {
		return core.Money{}, f.failChecking
	}
	return f.checking[p], nil
}

func (f *fakeHealthStore) ListUnbilledTransactions(context.Context, string, core.Period) ([]core.CardTransaction, error) {
	return f.unbilled, f.failUnbilled
}

func (f *fakeHealthStore) ListUnbilledInternational(context.Context, string, core.Period) ([]core.InternationalCharge, error) {
	return f.international, f.failInternational
}

func (f *fakeHealthStore) ListOccurrencesByKind(_ context.Context, _ string, _ core.Period, kind core.Kind) ([]core.Occurrence, error) {
	if kind == core.Installment && f.failInstallments != nil {
		return nil, f.failInstallments
	}
	return f.occurrences[kind], nil
}

func (f *fakeHealthStore) ListTemplates(context.Context, string, core.Kind) ([]core.Template, error) {
	return f.templates, f.failTemplates
}

var june15 = FixedClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

func cents(c int64) core.Money { return core.Money{Cents: c} }

func TestSummarize(t *testing.T) {
	target := period(2025, 7)
	store := &fakeHealthStore{
		checking: map[core.Period]core.Money{
			period(2025, 6): cents(300000),
			// the target month's balance must not be used
			period(2025, 7): cents(1),
		},
		unbilled: []core.CardTransaction{
			{Network: "visa", Type: core.Charge, Amount: cents(40000)},
			{Network: "visa", Type: core.Payment, Amount: cents(5000)},
			{Network: "amex", Type: core.Payment, Amount: cents(9000)},
		},
		international: []core.InternationalCharge{
			{Network: "visa", Local: cents(10000)},
		},
		occurrences: map[core.Kind][]core.Occurrence{
			core.Installment: {
				{ID: 7, Network: "visa", Direction: core.Expense, Amount: cents(5000), Active: true},
				{ID: 8, Network: "visa", Direction: core.Expense, Amount: cents(9999), Active: false},
				{ID: 9, Direction: core.Expense, Label: "Loan", Amount: cents(20000), Active: true},
			},
			core.Recurring: {
				{ID: 1, TemplateID: 100, Label: "Salary", Direction: core.Income, Amount: cents(250000), Active: true},
				{ID: 2, TemplateID: 101, Label: "Gym", Direction: core.Expense, Amount: cents(4000), Active: false},
			},
		},
		templates: []core.Template{
			{ID: 100, Kind: core.Recurring, Name: "Salary", Direction: core.Income, Amount: cents(250000), DueDay: 27, Start: period(2025, 1), Repeat: true, Active: true},
			{ID: 101, Kind: core.Recurring, Name: "Gym", Direction: core.Expense, Amount: cents(4000), DueDay: 1, Start: period(2025, 1), Repeat: true, Active: true},
			{ID: 102, Kind: core.Recurring, Name: "Rent", Direction: core.Expense, Amount: cents(80000), DueDay: 5, Start: period(2025, 1), Repeat: true, Active: true},
		},
	}

	snap, err := NewHealthAggregator(store, june15).Summarize(context.Background(), "alice", target)
	require.NoError(t, err)

	assert.Equal(t, int64(300000), snap.CheckingBalance.Cents)
	assert.Equal(t, core.NetworkTotals{
		Unbilled:      cents(40000),
		Installments:  cents(5000),
		International: cents(10000),
		Payments:      cents(5000),
		Total:         cents(50000),
	}, snap.Cards["visa"])
	assert.Equal(t, cents(0), snap.Cards["amex"].Total)

	// salary, loan and the not yet materialized rent
	assert.Equal(t, int64(250000), snap.Projected.Income.Cents)
	assert.Equal(t, int64(100000), snap.Projected.Expense.Cents)
	assert.Len(t, snap.Projected.Detail, 3)

	assert.Equal(t, int64(150000), snap.TotalCommitments.Cents)
	assert.Equal(t, int64(400000), snap.ProjectedBalance.Cents)
	// coverage is exactly 2x, so no bonus on top of the capped swing
	assert.Equal(t, 100, snap.HealthScore)
	assert.Equal(t, core.StatusExcellent, snap.HealthStatus)
	assert.Empty(t, snap.Alerts)
	assert.Empty(t, snap.Degraded)
}

func TestSummarizeDegradesBestEffortFetches(t *testing.T) {
	boom := errors.New("disk on fire")
	store := &fakeHealthStore{
		checking: map[core.Period]core.Money{period(2025, 6): cents(100000)},
		unbilled: []core.CardTransaction{
			{Network: "visa", Type: core.Charge, Amount: cents(90000)},
		},
		failInternational: boom,
		failInstallments:  boom,
		failTemplates:     boom,
	}

	snap, err := NewHealthAggregator(store, june15).Summarize(context.Background(), "alice", period(2025, 7))
	require.NoError(t, err)

	assert.Equal(t, []string{FetchInstallments, FetchInternational, FetchProjected}, snap.Degraded)
	assert.Equal(t, int64(90000), snap.TotalCommitments.Cents)
	assert.Equal(t, int64(10000), snap.ProjectedBalance.Cents)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, core.AlertWarning, snap.Alerts[0].Level)
}

func TestSummarizeFailsWithoutUnbilledTransactions(t *testing.T) {
	store := &fakeHealthStore{failUnbilled: errors.New("timeout")}

	_, err := NewHealthAggregator(store, june15).Summarize(context.Background(), "alice", period(2025, 7))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list unbilled transactions")
}

func TestSummarizeDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeHealthStore
	}{
		{"nothing recorded", &fakeHealthStore{}},
		{"no checking balance", &fakeHealthStore{
			unbilled: []core.CardTransaction{{Network: "visa", Type: core.Charge, Amount: cents(1000)}},
		}},
		{"checking unavailable", &fakeHealthStore{
			failChecking: errors.New("gone"),
			unbilled:     []core.CardTransaction{{Network: "visa", Type: core.Charge, Amount: cents(1000)}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewHealthAggregator(tt.store, june15).Summarize(context.Background(), "alice", period(2025, 7))
			require.NoError(t, err)
			assert.Equal(t, 50, snap.HealthScore)
			assert.Equal(t, core.StatusUnknown, snap.HealthStatus)
			assert.NotNil(t, snap.Cards)
			assert.NotNil(t, snap.Projected.Detail)
		})
	}
}

func TestSummarizeValidatesInput(t *testing.T) {
	agg := NewHealthAggregator(&fakeHealthStore{}, june15)

	_, err := agg.Summarize(context.Background(), "", period(2025, 7))
	assert.True(t, core.IsValidation(err))

	_, err = agg.Summarize(context.Background(), "alice", period(2025, 0))
	assert.True(t, core.IsValidation(err))
}
