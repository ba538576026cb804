package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"

	Recurring   Kind = "recurring"
	Installment Kind = "installment"

	// Card transaction entry types.
	Charge  EntryType = "expense"
	Payment EntryType = "payment"
)

const (
	MaxDescriptionLength = 200
	MaxNotesLength       = 1000
	DateLayout           = "2006-01-02"
)

type (
	Direction string
	Kind      string
	EntryType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Template is the canonical definition of a commitment. Recurring
	// templates are open ended; installment plans have a finite schedule.
	Template struct {
		ID        int64     `json:"id"`
		Owner     string    `json:"owner"`
		Kind      Kind      `json:"kind"`
		Name      string    `json:"name"`
		Direction Direction `json:"direction"`
		Amount    Money     `json:"amount"`
		DueDay    int       `json:"due_day"`
		Start     Period    `json:"start"`

		// Recurring only.
		Repeat bool `json:"repeat"`

		// Installment only.
		InstallmentAmount Money  `json:"installment_amount"`
		TotalInstallments int    `json:"total_installments"`
		StartInstallment  int    `json:"start_installment"`
		Network           string `json:"network,omitempty"`

		CategoryID *int64  `json:"category_id,omitempty"`
		Notes      string  `json:"notes,omitempty"`
		Active     bool    `json:"active"`
		ClosedFrom *Period `json:"closed_from,omitempty"`
	}

	// Occurrence is one month's materialized instance of a Template.
	Occurrence struct {
		ID         int64     `json:"id"`
		TemplateID int64     `json:"template_id"`
		Owner      string    `json:"owner"`
		Kind       Kind      `json:"kind"`
		Period     Period    `json:"period"`
		Date       Date      `json:"date"`
		Label      string    `json:"label"`
		Direction  Direction `json:"direction"`
		Amount     Money     `json:"amount"`
		CategoryID *int64    `json:"category_id,omitempty"`
		Notes      string    `json:"notes,omitempty"`
		Active     bool      `json:"active"`
		Override   bool      `json:"override"`
		Sequence   *int      `json:"sequence,omitempty"`
		Network    string    `json:"network,omitempty"`
	}

	// CardTransaction is a normalized statement row stamped with the
	// billing period it is charged to.
	CardTransaction struct {
		ID          int64     `json:"id"`
		Owner       string    `json:"owner"`
		Network     string    `json:"network"`
		Date        Date      `json:"date"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Type        EntryType `json:"type"`
		Billing     Period    `json:"billing"`
		Billed      bool      `json:"billed"`
	}

	// CheckingBalance is the disposable balance recorded for a month.
	CheckingBalance struct {
		Owner  string `json:"owner"`
		Period Period `json:"period"`
		Amount Money  `json:"amount"`
	}
)

var (
	ErrInvalidAmount    = Invalid("amount", "invalid amount: must be greater than zero")
	ErrEmptyDescription = Invalid("description", "description cannot be empty")
	ErrEmptyOwner       = Invalid("owner", "owner cannot be empty")
	ErrEmptyNetwork     = Invalid("network", "card network cannot be empty")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &m.Cents)
}

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	}
	return Invalid("direction", fmt.Sprintf("invalid direction %q: must be income or expense", d))
}

func (k Kind) Validate() error {
	switch k {
	case Recurring, Installment:
		return nil
	}
	return Invalid("kind", fmt.Sprintf("invalid kind %q: must be recurring or installment", k))
}

func (e EntryType) Validate() error {
	switch e {
	case Charge, Payment:
		return nil
	}
	return Invalid("type", fmt.Sprintf("invalid entry type %q: must be expense or payment", e))
}

// ValidateDescription enforces the shared 1..200 character bound used for
// template names, occurrence labels and transaction descriptions.
func ValidateDescription(field, s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return Invalid(field, field+" cannot be empty")
	}
	if len(s) > MaxDescriptionLength {
		return Invalid(field, fmt.Sprintf("%s too long (max %d characters)", field, MaxDescriptionLength))
	}
	return nil
}

func validateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return Invalid("notes", fmt.Sprintf("notes too long (max %d characters)", MaxNotesLength))
	}
	return nil
}

// NormalizeNetwork lower-cases and trims a card brand name.
func NormalizeNetwork(n string) string {
	return strings.ToLower(strings.TrimSpace(n))
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := ValidateDescription("name", t.Name); err != nil {
		return err
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if err := t.Start.Validate(); err != nil {
		return err
	}
	if t.DueDay < 1 || t.DueDay > 31 {
		return Invalid("due_day", fmt.Sprintf("invalid due day %d: must be between 1 and 31", t.DueDay))
	}
	if err := validateNotes(t.Notes); err != nil {
		return err
	}

	switch t.Kind {
	case Recurring:
		if err := t.Amount.Validate(); err != nil {
			return err
		}
	case Installment:
		if err := t.InstallmentAmount.Validate(); err != nil {
			return Invalid("installment_amount", "invalid installment amount: must be greater than zero")
		}
		if t.TotalInstallments < 1 {
			return Invalid("total_installments", fmt.Sprintf("invalid total installments %d: must be at least 1", t.TotalInstallments))
		}
		if t.StartInstallment < 1 || t.StartInstallment > t.TotalInstallments {
			return Invalid("start_installment", fmt.Sprintf("invalid start installment %d: must be between 1 and %d", t.StartInstallment, t.TotalInstallments))
		}
	}
	return nil
}

func (c CardTransaction) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return ErrEmptyOwner
	}
	if c.Network == "" {
		return ErrEmptyNetwork
	}
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateDescription("description", c.Description); err != nil {
		return err
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	return c.Type.Validate()
}
