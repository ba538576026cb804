package core

import "testing"

func TestPeriodAddMonths(t *testing.T) {
	tests := []struct {
		from Period
		n    int
		want Period
	}{
		{Period{2025, 1}, 0, Period{2025, 1}},
		{Period{2025, 11}, 2, Period{2026, 1}},
		{Period{2025, 12}, 25, Period{2028, 1}},
		{Period{2025, 1}, -1, Period{2024, 12}},
	}
	for _, tt := range tests {
		if got := tt.from.AddMonths(tt.n); got != tt.want {
			t.Errorf("%v.AddMonths(%d) = %v, want %v", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestPeriodCompare(t *testing.T) {
	if !(Period{2024, 12}).Before(Period{2025, 1}) {
		t.Error("2024-12 should be before 2025-01")
	}
	if (Period{2025, 6}).Before(Period{2025, 6}) {
		t.Error("a period is not before itself")
	}
	if (Period{2025, 7}).Compare(Period{2025, 6}) != 1 {
		t.Error("2025-07 should compare after 2025-06")
	}
}

func TestPeriodDateOnClampsToMonthEnd(t *testing.T) {
	if got := (Period{2025, 2}).DateOn(31).String(); got != "2025-02-28" {
		t.Errorf("DateOn(31) in Feb 2025 = %s", got)
	}
	if got := (Period{2024, 2}).DateOn(30).String(); got != "2024-02-29" {
		t.Errorf("DateOn(30) in Feb 2024 = %s", got)
	}
}

func TestInstallmentScheduleMidPlan(t *testing.T) {
	tmpl := validInstallment()
	tmpl.StartInstallment = 3
	tmpl.TotalInstallments = 12
	tmpl.Start = Period{2025, 1}

	schedule := tmpl.InstallmentSchedule()
	if len(schedule) != 10 {
		t.Fatalf("expected 10 installments, got %d", len(schedule))
	}
	for i, s := range schedule {
		if s.Sequence != 3+i {
			t.Errorf("entry %d sequence = %d, want %d", i, s.Sequence, 3+i)
		}
		want := Period{2025, 1 + i}
		if s.Period != want {
			t.Errorf("entry %d period = %v, want %v", i, s.Period, want)
		}
	}
}

func TestInstallmentScheduleYearRollover(t *testing.T) {
	tmpl := validInstallment()
	tmpl.StartInstallment = 1
	tmpl.TotalInstallments = 4
	tmpl.Start = Period{2025, 11}

	want := []Period{{2025, 11}, {2025, 12}, {2026, 1}, {2026, 2}}
	occs := tmpl.Occurrences()
	if len(occs) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occs))
	}
	for i, o := range occs {
		if o.Period != want[i] {
			t.Errorf("occurrence %d period = %v, want %v", i, o.Period, want[i])
		}
		if o.Sequence == nil || *o.Sequence != i+1 {
			t.Errorf("occurrence %d sequence = %v, want %d", i, o.Sequence, i+1)
		}
		if o.Amount != tmpl.InstallmentAmount {
			t.Errorf("occurrence %d amount = %v, want installment amount", i, o.Amount)
		}
	}
}

func TestOccurrenceFor(t *testing.T) {
	closed := Period{2025, 6}
	tests := []struct {
		name   string
		mutate func(*Template)
		period Period
		want   bool
	}{
		{"start period", nil, Period{2025, 1}, true},
		{"before start", nil, Period{2024, 12}, false},
		{"later month repeating", nil, Period{2026, 3}, true},
		{"later month not repeating", func(t *Template) { t.Repeat = false }, Period{2025, 2}, false},
		{"start month not repeating", func(t *Template) { t.Repeat = false }, Period{2025, 1}, true},
		{"inactive", func(t *Template) { t.Active = false }, Period{2025, 1}, false},
		{"before close cursor", func(t *Template) { t.ClosedFrom = &closed }, Period{2025, 5}, true},
		{"at close cursor", func(t *Template) { t.ClosedFrom = &closed }, Period{2025, 6}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validRecurring()
			if tt.mutate != nil {
				tt.mutate(&tmpl)
			}
			_, ok := tmpl.OccurrenceFor(tt.period)
			if ok != tt.want {
				t.Errorf("OccurrenceFor(%v) = %v, want %v", tt.period, ok, tt.want)
			}
		})
	}
}

func TestOccurrenceForInstallmentSequence(t *testing.T) {
	tmpl := validInstallment()
	tmpl.StartInstallment = 3
	tmpl.TotalInstallments = 5

	o, ok := tmpl.OccurrenceFor(Period{2025, 3})
	if !ok || o.Sequence == nil || *o.Sequence != 5 {
		t.Fatalf("expected sequence 5 in 2025-03, got ok=%v seq=%v", ok, o.Sequence)
	}
	if _, ok := tmpl.OccurrenceFor(Period{2025, 4}); ok {
		t.Fatal("expected no occurrence past the last installment")
	}
}

func TestOverrideForIgnoresRepeat(t *testing.T) {
	tmpl := validRecurring()
	tmpl.Repeat = false
	o, ok := tmpl.OverrideFor(Period{2025, 4})
	if !ok || !o.Override {
		t.Fatalf("expected override occurrence, got ok=%v %+v", ok, o)
	}
	if _, ok := tmpl.OverrideFor(Period{2024, 4}); ok {
		t.Fatal("expected no override before start")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"2025-07", Period{2025, 7}, false},
		{" 2026-01 ", Period{2026, 1}, false},
		{"2025-13", Period{}, true},
		{"2025/07", Period{}, true},
		{"", Period{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParsePeriod(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if err != nil && !IsValidation(err) {
			t.Errorf("ParsePeriod(%q) error should be a validation error", tt.in)
		}
	}
}
