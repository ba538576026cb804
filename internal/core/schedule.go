package core

// ScheduledInstallment is one entry of an installment plan schedule.
type ScheduledInstallment struct {
	Sequence int
	Period   Period
}

// InstallmentSchedule lists every installment of the plan, from
// StartInstallment through TotalInstallments, one calendar month apart
// starting at the template's Start period.
func (t Template) InstallmentSchedule() []ScheduledInstallment {
	if t.Kind != Installment || t.StartInstallment < 1 || t.TotalInstallments < t.StartInstallment {
		return nil
	}
	out := make([]ScheduledInstallment, 0, t.TotalInstallments-t.StartInstallment+1)
	for n := t.StartInstallment; n <= t.TotalInstallments; n++ {
		out = append(out, ScheduledInstallment{
			Sequence: n,
			Period:   t.Start.AddMonths(n - t.StartInstallment),
		})
	}
	return out
}

// openAt reports whether the template may have an occurrence in p at all:
// the template is active, p is not before Start and, when the template was
// closed by a forward delete, p is before the closing cursor.
func (t Template) openAt(p Period) bool {
	if !t.Active || p.Before(t.Start) {
		return false
	}
	if t.ClosedFrom != nil && !p.Before(*t.ClosedFrom) {
		return false
	}
	return true
}

// OccurrenceFor returns the occurrence the template contributes to p, and
// false when it contributes none. Non-repeating recurring templates only
// produce their start period; installment plans only produce periods of
// their schedule.
func (t Template) OccurrenceFor(p Period) (Occurrence, bool) {
	if !t.openAt(p) {
		return Occurrence{}, false
	}
	o := t.baseOccurrence(p)
	switch t.Kind {
	case Recurring:
		if p != t.Start && !t.Repeat {
			return Occurrence{}, false
		}
	case Installment:
		seq := t.StartInstallment + t.Start.MonthsUntil(p)
		if seq > t.TotalInstallments {
			return Occurrence{}, false
		}
		o.Sequence = &seq
	default:
		return Occurrence{}, false
	}
	return o, true
}

// OverrideFor builds an explicit single-month occurrence. Unlike
// OccurrenceFor it ignores the repeat flag, but never reaches outside
// [Start, ClosedFrom).
func (t Template) OverrideFor(p Period) (Occurrence, bool) {
	if p.Before(t.Start) || (t.ClosedFrom != nil && !p.Before(*t.ClosedFrom)) {
		return Occurrence{}, false
	}
	if t.Kind == Installment {
		o, ok := t.OccurrenceFor(p)
		if ok {
			o.Override = true
		}
		return o, ok
	}
	o := t.baseOccurrence(p)
	o.Override = true
	return o, true
}

func (t Template) baseOccurrence(p Period) Occurrence {
	amount := t.Amount
	if t.Kind == Installment {
		amount = t.InstallmentAmount
	}
	return Occurrence{
		TemplateID: t.ID,
		Owner:      t.Owner,
		Kind:       t.Kind,
		Period:     p,
		Date:       p.DateOn(t.DueDay),
		Label:      t.Name,
		Direction:  t.Direction,
		Amount:     amount,
		CategoryID: t.CategoryID,
		Notes:      t.Notes,
		Active:     true,
		Network:    t.Network,
	}
}

// Occurrences materializes the full eager schedule of an installment plan.
func (t Template) Occurrences() []Occurrence {
	schedule := t.InstallmentSchedule()
	out := make([]Occurrence, 0, len(schedule))
	for _, s := range schedule {
		o := t.baseOccurrence(s.Period)
		seq := s.Sequence
		o.Sequence = &seq
		out = append(out, o)
	}
	return out
}
