package core

import (
	"bytes"
	"encoding/json"
)

// Optional marks a patch field as present or absent. A present field may
// still carry a zero or nil value, which means "clear" rather than
// "leave unchanged".
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON only runs for keys present in the payload, so an explicit
// null becomes Set with the zero value and a missing key stays unset.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// TemplatePatch holds the template fields that propagate to occurrences.
type TemplatePatch struct {
	Name       Optional[string]    `json:"name"`
	Direction  Optional[Direction] `json:"direction"`
	Amount     Optional[Money]     `json:"amount"`
	CategoryID Optional[*int64]    `json:"category_id"`
	Notes      Optional[string]    `json:"notes"`
}

// Empty reports whether no field is set.
func (p TemplatePatch) Empty() bool {
	return !p.Name.Set && !p.Direction.Set && !p.Amount.Set && !p.CategoryID.Set && !p.Notes.Set
}

func (p TemplatePatch) Validate() error {
	if p.Name.Set {
		if err := ValidateDescription("name", p.Name.Value); err != nil {
			return err
		}
	}
	if p.Direction.Set {
		if err := p.Direction.Value.Validate(); err != nil {
			return err
		}
	}
	if p.Amount.Set {
		if err := p.Amount.Value.Validate(); err != nil {
			return err
		}
	}
	if p.Notes.Set {
		if err := validateNotes(p.Notes.Value); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the set fields onto t.
func (p TemplatePatch) Apply(t *Template) {
	if p.Name.Set {
		t.Name = p.Name.Value
	}
	if p.Direction.Set {
		t.Direction = p.Direction.Value
	}
	if p.Amount.Set {
		if t.Kind == Installment {
			t.InstallmentAmount = p.Amount.Value
		} else {
			t.Amount = p.Amount.Value
		}
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Value
	}
	if p.Notes.Set {
		t.Notes = p.Notes.Value
	}
}

// Occurrence returns the equivalent occurrence patch. Active is never part
// of a template propagation.
func (p TemplatePatch) Occurrence() OccurrencePatch {
	return OccurrencePatch{
		Label:      p.Name,
		Direction:  p.Direction,
		Amount:     p.Amount,
		CategoryID: p.CategoryID,
		Notes:      p.Notes,
	}
}

// OccurrencePatch holds the fields a single-month edit may change.
type OccurrencePatch struct {
	Label      Optional[string]    `json:"label"`
	Direction  Optional[Direction] `json:"direction"`
	Amount     Optional[Money]     `json:"amount"`
	CategoryID Optional[*int64]    `json:"category_id"`
	Notes      Optional[string]    `json:"notes"`
	Active     Optional[bool]      `json:"active"`
	Date       Optional[Date]      `json:"date"`
}

func (p OccurrencePatch) Empty() bool {
	return !p.Label.Set && !p.Direction.Set && !p.Amount.Set && !p.CategoryID.Set &&
		!p.Notes.Set && !p.Active.Set && !p.Date.Set
}

func (p OccurrencePatch) Validate() error {
	if p.Label.Set {
		if err := ValidateDescription("label", p.Label.Value); err != nil {
			return err
		}
	}
	if p.Direction.Set {
		if err := p.Direction.Value.Validate(); err != nil {
			return err
		}
	}
	if p.Amount.Set {
		if err := p.Amount.Value.Validate(); err != nil {
			return err
		}
	}
	if p.Notes.Set {
		if err := validateNotes(p.Notes.Value); err != nil {
			return err
		}
	}
	if p.Date.Set {
		if err := p.Date.Value.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the set fields onto o.
func (p OccurrencePatch) Apply(o *Occurrence) {
	if p.Label.Set {
		o.Label = p.Label.Value
	}
	if p.Direction.Set {
		o.Direction = p.Direction.Value
	}
	if p.Amount.Set {
		o.Amount = p.Amount.Value
	}
	if p.CategoryID.Set {
		o.CategoryID = p.CategoryID.Value
	}
	if p.Notes.Set {
		o.Notes = p.Notes.Value
	}
	if p.Active.Set {
		o.Active = p.Active.Value
	}
	if p.Date.Set {
		o.Date = p.Date.Value
	}
}
