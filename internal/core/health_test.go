package core

import "testing"

func money(units int64) Money { return Money{Cents: units * 100} }

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name        string
		checking    Money
		commitments Money
		projected   Money
		wantScore   int
		wantStatus  string
	}{
		{"surplus clamps to 100", money(1_000_000), money(500_000), money(1_000_000), 100, StatusExcellent},
		{"deficit beyond commitments clamps to 0", money(1_000_000), money(500_000), money(-600_000), 0, StatusCritical},
		{"no commitments is unknown", money(1_000_000), Money{}, money(-10), 50, StatusUnknown},
		{"no checking balance is unknown", Money{}, money(500), money(100), 50, StatusUnknown},
		{"half surplus", money(1000), money(800), money(500), 75, StatusHealthy},
		{"small deficit", money(1000), money(800), money(-200), 38, StatusCritical},
		{"zero projected balance", money(1000), money(1000), Money{}, 50, StatusWarning},
		{"coverage above three", money(4000), money(1000), money(1000), 83, StatusExcellent},
		{"just below excellent rounds up but stays healthy", money(3200), money(2000), money(1900), 80, StatusHealthy},
		{"just below warning rounds up but stays critical", money(1000), money(6400), money(-1300), 40, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, status := HealthScore(tt.checking, tt.commitments, tt.projected)
			if score != tt.wantScore || status != tt.wantStatus {
				t.Errorf("HealthScore() = (%d, %q), want (%d, %q)", score, status, tt.wantScore, tt.wantStatus)
			}
		})
	}
}

func TestNetworkTotalsFloorAtZero(t *testing.T) {
	n := NetworkTotals{
		Unbilled:      money(100),
		Installments:  money(50),
		International: money(25),
		Payments:      money(500),
	}.WithTotal()
	if n.Total.Cents != 0 {
		t.Fatalf("expected total floored at 0, got %d", n.Total.Cents)
	}

	n = NetworkTotals{Unbilled: money(100), Installments: money(50), International: money(25), Payments: money(75)}.WithTotal()
	if n.Total != money(100) {
		t.Fatalf("expected total 100, got %v", n.Total)
	}
}

func TestSnapshotFinalize(t *testing.T) {
	s := HealthSnapshot{
		CheckingBalance: money(3000),
		Cards: map[string]NetworkTotals{
			"visa":       {Unbilled: money(400), Installments: money(100)},
			"mastercard": {Unbilled: money(50), Payments: money(200)},
		},
		Projected: Projected{Income: money(1000), Expense: money(1500)},
	}
	s.Finalize()

	if s.Cards["visa"].Total != money(500) || s.Cards["mastercard"].Total != (Money{}) {
		t.Fatalf("unexpected card totals: %+v", s.Cards)
	}
	if s.TotalCommitments != money(2000) {
		t.Errorf("TotalCommitments = %v, want 2000", s.TotalCommitments)
	}
	if s.ProjectedBalance != money(2000) {
		t.Errorf("ProjectedBalance = %v, want 2000", s.ProjectedBalance)
	}
	// 50 + 50*min(2000/3000,1) = 83.3; coverage 1.5 adds nothing.
	if s.HealthScore != 83 || s.HealthStatus != StatusExcellent {
		t.Errorf("score = %d %q, want 83 excellent", s.HealthScore, s.HealthStatus)
	}
	if len(s.Alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", s.Alerts)
	}
}

func TestHealthAlerts(t *testing.T) {
	tests := []struct {
		name      string
		checking  Money
		projected Money
		want      string
	}{
		{"negative", money(1000), money(-1), AlertCritical},
		{"zero is low", money(1000), Money{}, AlertWarning},
		{"below twenty percent", money(1000), money(199), AlertWarning},
		{"at twenty percent", money(1000), money(200), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := HealthAlerts(tt.checking, tt.projected)
			got := ""
			if len(alerts) > 0 {
				got = alerts[0].Level
			}
			if got != tt.want {
				t.Errorf("alert = %q, want %q", got, tt.want)
			}
		})
	}
}
