package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"impegni/internal/core"
)

var errUsage = errors.New("usage")

// flags wraps a FlagSet with the parsers shared by the subcommands.
type flags struct {
	*flag.FlagSet
	set map[string]bool
}

func newFlags(name string) *flags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &flags{FlagSet: fs}
}

func (f *flags) parse(args []string) error {
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, f.Name(), err)
	}
	f.set = make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return nil
}

// isSet reports whether the flag was given on the command line, even
// with an empty value.
func (f *flags) isSet(name string) bool {
	return f.set[name]
}

func (f *flags) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !f.isSet(n) {
			missing = append(missing, "-"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing %s", errUsage, f.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// parseSignedAmount accepts zero and negative amounts, rounding half-up
// to cents.
func parseSignedAmount(s string) (core.Money, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return core.Money{}, core.Invalid("amount", fmt.Sprintf("invalid amount %q", s))
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(core.MaxCents)) {
		return core.Money{}, core.Invalid("amount", fmt.Sprintf("amount %q is out of range", s))
	}
	return core.Money{Cents: cents.IntPart()}, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, core.Invalid(field, fmt.Sprintf("invalid %s %q", field, s))
	}
	return d, nil
}

// parseCategory maps "" and "none" to a cleared category.
func parseCategory(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, core.Invalid("category_id", fmt.Sprintf("invalid category %q", s))
	}
	return &id, nil
}

// patchFlags registers the fields shared by occurrence and template edits.
type patchFlags struct {
	label, direction, amount, category, notes string
}

func (p *patchFlags) register(f *flags, labelName string) {
	f.StringVar(&p.label, labelName, "", "new "+labelName)
	f.StringVar(&p.direction, "direction", "", "income or expense")
	f.StringVar(&p.amount, "amount", "", "amount, e.g. 12.50")
	f.StringVar(&p.category, "category", "", "category id, or none to clear")
	f.StringVar(&p.notes, "notes", "", "notes; empty clears")
}

func (p *patchFlags) occurrencePatch(f *flags, labelName string) (core.OccurrencePatch, error) {
	var patch core.OccurrencePatch
	if f.isSet(labelName) {
		patch.Label = core.Some(p.label)
	}
	if f.isSet("direction") {
		patch.Direction = core.Some(core.Direction(strings.ToLower(p.direction)))
	}
	if f.isSet("amount") {
		m, err := parseAmount(p.amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = core.Some(m)
	}
	if f.isSet("category") {
		id, err := parseCategory(p.category)
		if err != nil {
			return patch, err
		}
		patch.CategoryID = core.Some(id)
	}
	if f.isSet("notes") {
		patch.Notes = core.Some(p.notes)
	}
	return patch, nil
}

func (p *patchFlags) templatePatch(f *flags) (core.TemplatePatch, error) {
	op, err := p.occurrencePatch(f, "name")
	if err != nil {
		return core.TemplatePatch{}, err
	}
	return core.TemplatePatch{
		Name:       op.Label,
		Direction:  op.Direction,
		Amount:     op.Amount,
		CategoryID: op.CategoryID,
		Notes:      op.Notes,
	}, nil
}

// occurrenceOnlyFlags adds the fields a template edit cannot change.
type occurrenceOnlyFlags struct {
	active, date string
}

func (o *occurrenceOnlyFlags) register(f *flags) {
	f.StringVar(&o.active, "active", "", "true or false")
	f.StringVar(&o.date, "date", "", "effective date YYYY-MM-DD")
}

func (o *occurrenceOnlyFlags) apply(f *flags, patch *core.OccurrencePatch) error {
	if f.isSet("active") {
		v, err := strconv.ParseBool(o.active)
		if err != nil {
			return core.Invalid("active", fmt.Sprintf("invalid active %q: must be true or false", o.active))
		}
		patch.Active = core.Some(v)
	}
	if f.isSet("date") {
		d, err := core.ParseDate(o.date)
		if err != nil {
			return err
		}
		patch.Date = core.Some(d)
	}
	return nil
}
