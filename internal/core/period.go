package core

import (
	"fmt"
	"strings"
	"time"
)

// Period identifies a calendar (or billing) month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// NewPeriod builds a validated Period.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, Invalid("period", fmt.Sprintf("invalid period %q: use YYYY-MM", s))
	}
	return NewPeriod(t.Year(), int(t.Month()))
}

// PeriodOf returns the calendar period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return Invalid("month", fmt.Sprintf("invalid month %d: must be between 1 and 12", p.Month))
	}
	if p.Year < 1900 || p.Year > 9999 {
		return Invalid("year", fmt.Sprintf("invalid year %d", p.Year))
	}
	return nil
}

// Compare orders periods by year first, then month.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }

// AddMonths moves the period n months forward, carrying whole years when
// the month runs past December.
func (p Period) AddMonths(n int) Period {
	year, month := p.Year, p.Month+n
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}
	return Period{Year: year, Month: month}
}

// MonthsUntil returns how many months separate p from o (o - p).
func (p Period) MonthsUntil(o Period) int {
	return (o.Year-p.Year)*12 + (o.Month - p.Month)
}

// DaysIn returns the number of days in the period's month.
func (p Period) DaysIn() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOn returns the date for the given day of month, clamped to the last
// day when the month is shorter (e.g. day 31 in February).
func (p Period) DateOn(day int) Date {
	if day < 1 {
		day = 1
	}
	if last := p.DaysIn(); day > last {
		day = last
	}
	return NewDate(p.Year, p.Month, day)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
