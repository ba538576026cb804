package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InternationalCharge is a card charge made in a foreign currency. Local is
// fixed at import time from the caller supplied rate and never recomputed.
type InternationalCharge struct {
	ID            int64           `json:"id"`
	Owner         string          `json:"owner"`
	Network       string          `json:"network"`
	Date          Date            `json:"date"`
	Description   string          `json:"description"`
	Currency      string          `json:"currency"`
	ForeignAmount decimal.Decimal `json:"foreign_amount"`
	Rate          decimal.Decimal `json:"rate"`
	Local         Money           `json:"local"`
	Billing       Period          `json:"billing"`
	Billed        bool            `json:"billed"`
}

func (c InternationalCharge) Validate() error {
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
	if len(c.Currency) != 3 {
		return Invalid("currency", fmt.Sprintf("invalid currency %q: expected a 3-letter ISO code", c.Currency))
	}
	return nil
}
