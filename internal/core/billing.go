package core

import "strings"

// DefaultCutoffDay is the first day of month whose purchases skip the next
// statement and land on the one after.
const DefaultCutoffDay = 22

// BillingPeriod is an explicit, owner-configured date range charged to a
// billing month.
type BillingPeriod struct {
	Owner  string `json:"owner"`
	Period Period `json:"period"`
	Start  Date   `json:"start"`
	End    Date   `json:"end"`
}

func (b BillingPeriod) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if err := b.Start.Validate(); err != nil {
		return Invalid("start", "invalid period start: "+err.Error())
	}
	if err := b.End.Validate(); err != nil {
		return Invalid("end", "invalid period end: "+err.Error())
	}
	if b.End.Before(b.Start.Time) {
		return Invalid("end", "period end must not be before period start")
	}
	return nil
}

// Contains reports whether d falls in [Start, End], both inclusive.
func (b BillingPeriod) Contains(d Date) bool {
	return !d.Before(b.Start.Time) && !d.After(b.End.Time)
}

// DefaultBillingPeriod applies the day-threshold rule: purchases on or after
// the cutoff day are billed two months later, earlier ones the next month.
func DefaultBillingPeriod(d Date) Period {
	offset := 1
	if d.Day() >= DefaultCutoffDay {
		offset = 2
	}
	return d.Period().AddMonths(offset)
}
