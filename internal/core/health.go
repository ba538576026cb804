package core

import (
	"fmt"
	"math"
)

const (
	baseScore           = 50.0
	scoreSwing          = 50.0
	coverageBonus       = 10.0
	lowBalanceThreshold = 0.2
)

// WithTotal returns n with Total = unbilled + installments + international
// - payments, floored at zero so overpaying one card never offsets another.
func (n NetworkTotals) WithTotal() NetworkTotals {
	total := n.Unbilled.Cents + n.Installments.Cents + n.International.Cents - n.Payments.Cents
	if total < 0 {
		total = 0
	}
	n.Total = Money{Cents: total}
	return n
}

// Finalize derives every computed field of the snapshot from its inputs:
// checking balance, per-network subtotals and projected occurrences.
func (s *HealthSnapshot) Finalize() {
	var cards int64
	for network, totals := range s.Cards {
		totals = totals.WithTotal()
		s.Cards[network] = totals
		cards += totals.Total.Cents
	}
	s.TotalCommitments = Money{Cents: cards + s.Projected.Expense.Cents}
	s.ProjectedBalance = Money{Cents: s.CheckingBalance.Cents + s.Projected.Income.Cents - s.TotalCommitments.Cents}
	s.HealthScore, s.HealthStatus = HealthScore(s.CheckingBalance, s.TotalCommitments, s.ProjectedBalance)
	s.Alerts = HealthAlerts(s.CheckingBalance, s.ProjectedBalance)
}

// HealthScore maps the month's position to a 0-100 score and its status.
// The status is read from the score before rounding.
// With no commitments or no checking balance there is nothing to compare
// against, so the score is neutral and the status unknown.
func HealthScore(checking, commitments, projectedBalance Money) (int, string) {
	if commitments.Cents == 0 || checking.Cents == 0 {
		return int(baseScore), StatusUnknown
	}

	cb := float64(checking.Cents)
	tc := float64(commitments.Cents)
	pb := float64(projectedBalance.Cents)

	score := baseScore
	if pb > 0 {
		score += scoreSwing * math.Min(pb/cb, 1)
	} else {
		score -= scoreSwing * math.Min(math.Abs(pb)/tc, 1)
	}

	coverage := cb / tc
	if coverage > 2 {
		score += coverageBonus
	}
	if coverage > 3 {
		score += coverageBonus
	}

	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score)), statusFor(score)
}

// statusFor classifies the unrounded score, so 79.6 stays healthy even
// though it is reported as 80.
func statusFor(score float64) string {
	switch {
	case score >= 80:
		return StatusExcellent
	case score >= 60:
		return StatusHealthy
	case score >= 40:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// HealthAlerts flags a negative projected balance, or one below 20% of the
// checking balance.
func HealthAlerts(checking, projectedBalance Money) []Alert {
	alerts := []Alert{}
	pb := projectedBalance.Cents
	switch {
	case pb < 0:
		alerts = append(alerts, Alert{
			Level:   AlertCritical,
			Message: fmt.Sprintf("projected balance is negative (%.2f)", projectedBalance.Euros()),
		})
	case float64(pb) < lowBalanceThreshold*float64(checking.Cents):
		alerts = append(alerts, Alert{
			Level:   AlertWarning,
			Message: fmt.Sprintf("projected balance %.2f is below 20%% of the checking balance", projectedBalance.Euros()),
		})
	}
	return alerts
}
