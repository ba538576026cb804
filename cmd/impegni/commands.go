package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"impegni/internal/backend"
	"impegni/internal/core"
	"impegni/internal/services"
)

func runTemplate(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: template: kind must be recurring or installment", errUsage)
	}
	kind := core.Kind(args[0])
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	f := newFlags("template " + args[0])
	var owner, name, direction, amount, start, network, category, notes, installment string
	var dueDay, total, startInstallment int
	var repeat bool
	f.StringVar(&owner, "owner", "", "owner")
	f.StringVar(&name, "name", "", "template name")
	f.StringVar(&direction, "direction", string(core.Expense), "income or expense")
	f.StringVar(&amount, "amount", "", "amount per month (recurring) or total (installment)")
	f.IntVar(&dueDay, "due-day", 1, "day of month")
	f.StringVar(&start, "start", "", "first period YYYY-MM")
	f.BoolVar(&repeat, "repeat", true, "recurring only: repeat every month")
	f.StringVar(&installment, "installment-amount", "", "installment only: amount per installment")
	f.IntVar(&total, "total", 0, "installment only: number of installments")
	f.IntVar(&startInstallment, "start-installment", 1, "installment only: first installment number")
	f.StringVar(&network, "network", "", "installment only: card network")
	f.StringVar(&category, "category", "", "category id")
	f.StringVar(&notes, "notes", "", "notes")
	if err := f.parse(args[1:]); err != nil {
		return nil, err
	}
	if err := f.require("owner", "name", "start"); err != nil {
		return nil, err
	}

	in := services.TemplateInput{
		Owner:             owner,
		Kind:              kind,
		Name:              name,
		Direction:         core.Direction(strings.ToLower(direction)),
		DueDay:            dueDay,
		Repeat:            repeat,
		TotalInstallments: total,
		StartInstallment:  startInstallment,
		Network:           network,
		Notes:             notes,
	}
	var err error
	if in.Start, err = core.ParsePeriod(start); err != nil {
		return nil, err
	}
	if f.isSet("amount") {
		if in.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
	}
	if f.isSet("installment-amount") {
		if in.InstallmentAmount, err = parseAmount(installment); err != nil {
			return nil, err
		}
	}
	if in.CategoryID, err = parseCategory(category); err != nil {
		return nil, err
	}

	return b.Commitments.CreateTemplate(ctx, in)
}

func runTemplates(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("templates")
	owner := f.String("owner", "", "owner")
	kind := f.String("kind", "", "recurring or installment; empty lists both")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner"); err != nil {
		return nil, err
	}
	if *kind != "" {
		if err := core.Kind(*kind).Validate(); err != nil {
			return nil, err
		}
	}
	return b.Repository.ListTemplates(ctx, *owner, core.Kind(*kind))
}

func runBillingPeriods(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("billing-periods")
	owner := f.String("owner", "", "owner")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner"); err != nil {
		return nil, err
	}
	return b.Billing.BillingPeriods(ctx, *owner)
}

func runCategories(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("categories")
	owner := f.String("owner", "", "owner")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner"); err != nil {
		return nil, err
	}
	return b.Repository.ListCategories(ctx, *owner)
}

func runList(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	owner, p, err := ownerAndPeriod("list", args)
	if err != nil {
		return nil, err
	}
	return b.Commitments.MaterializeAndList(ctx, owner, p)
}

func runOverride(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("override")
	owner := f.String("owner", "", "owner")
	templateID := f.Int64("template", 0, "template id")
	period := f.String("period", "", "period YYYY-MM")
	var pf patchFlags
	var of occurrenceOnlyFlags
	pf.register(f, "label")
	of.register(f)
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "template", "period"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return nil, err
	}
	patch, err := pf.occurrencePatch(f, "label")
	if err != nil {
		return nil, err
	}
	if err := of.apply(f, &patch); err != nil {
		return nil, err
	}
	return b.Commitments.CreateOccurrenceOverride(ctx, *owner, *templateID, p, patch)
}

func runEditOccurrence(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("edit-occurrence")
	owner := f.String("owner", "", "owner")
	id := f.Int64("id", 0, "occurrence id")
	var pf patchFlags
	var of occurrenceOnlyFlags
	pf.register(f, "label")
	of.register(f)
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "id"); err != nil {
		return nil, err
	}
	patch, err := pf.occurrencePatch(f, "label")
	if err != nil {
		return nil, err
	}
	if err := of.apply(f, &patch); err != nil {
		return nil, err
	}
	return b.Commitments.EditOccurrence(ctx, *owner, *id, patch)
}

func runEditTemplate(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("edit-template")
	owner := f.String("owner", "", "owner")
	id := f.Int64("id", 0, "template id")
	from := f.String("from", "", "first period affected YYYY-MM")
	var pf patchFlags
	pf.register(f, "name")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "id", "from"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*from)
	if err != nil {
		return nil, err
	}
	patch, err := pf.templatePatch(f)
	if err != nil {
		return nil, err
	}
	n, err := b.Commitments.EditTemplateForward(ctx, *owner, *id, p, patch)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"updated_occurrences": n}, nil
}

func runDeleteOccurrence(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("delete-occurrence")
	owner := f.String("owner", "", "owner")
	id := f.Int64("id", 0, "occurrence id")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "id"); err != nil {
		return nil, err
	}
	if err := b.Commitments.DeleteOccurrence(ctx, *owner, *id); err != nil {
		return nil, err
	}
	return map[string]int64{"deleted": *id}, nil
}

func runDeleteTemplate(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("delete-template")
	owner := f.String("owner", "", "owner")
	id := f.Int64("id", 0, "template id")
	from := f.String("from", "", "first period deleted YYYY-MM")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "id", "from"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*from)
	if err != nil {
		return nil, err
	}
	return b.Commitments.DeleteTemplateForward(ctx, *owner, *id, p)
}

func runClassify(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("classify")
	owner := f.String("owner", "", "owner")
	date := f.String("date", "", "transaction date YYYY-MM-DD")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "date"); err != nil {
		return nil, err
	}
	d, err := core.ParseDate(*date)
	if err != nil {
		return nil, err
	}
	p, err := b.Billing.Classify(ctx, *owner, d)
	if err != nil {
		return nil, err
	}
	return map[string]string{"date": d.String(), "billing_period": p.String()}, nil
}

func runBillingConfigure(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("billing-configure")
	owner := f.String("owner", "", "owner")
	period := f.String("period", "", "billing period YYYY-MM")
	start := f.String("start", "", "first day YYYY-MM-DD")
	end := f.String("end", "", "last day YYYY-MM-DD")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "period", "start", "end"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return nil, err
	}
	s, err := core.ParseDate(*start)
	if err != nil {
		return nil, err
	}
	e, err := core.ParseDate(*end)
	if err != nil {
		return nil, err
	}
	return b.Billing.ConfigureBillingPeriod(ctx, *owner, p, s, e)
}

func runBillingRecalculate(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	owner, p, err := ownerAndPeriod("billing-recalculate", args)
	if err != nil {
		return nil, err
	}
	n, err := b.Billing.RecalculateBillingPeriod(ctx, owner, p)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"restamped": n}, nil
}

func runBillingClose(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("billing-close")
	owner := f.String("owner", "", "owner")
	network := f.String("network", "", "card network")
	period := f.String("period", "", "billing period YYYY-MM")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "network", "period"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return nil, err
	}
	n, err := b.Billing.MarkBilled(ctx, *owner, *network, p)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"billed": n}, nil
}

func runIngest(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("ingest")
	owner := f.String("owner", "", "owner")
	network := f.String("network", "", "card network")
	file := f.String("file", "-", "JSON array of statement rows, - for stdin")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "network"); err != nil {
		return nil, err
	}
	rows, err := readStatementRows(*file)
	if err != nil {
		return nil, err
	}
	return b.Billing.IngestTransactions(ctx, *owner, *network, rows)
}

func readStatementRows(path string) ([]services.StatementRow, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open statement rows: %w", err)
		}
		defer fh.Close()
		r = fh
	}
	var rows []services.StatementRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode statement rows: %w", err)
	}
	return rows, nil
}

func runInternational(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("international")
	owner := f.String("owner", "", "owner")
	network := f.String("network", "", "card network")
	date := f.String("date", "", "charge date YYYY-MM-DD")
	desc := f.String("description", "", "description")
	currency := f.String("currency", "", "ISO currency code")
	amount := f.String("amount", "", "amount in the foreign currency")
	rate := f.String("rate", "", "local units per foreign unit")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "network", "date", "description", "currency", "amount", "rate"); err != nil {
		return nil, err
	}

	in := services.InternationalInput{Network: *network, Description: *desc, Currency: *currency}
	var err error
	if in.Date, err = core.ParseDate(*date); err != nil {
		return nil, err
	}
	if in.ForeignAmount, err = parseDecimal("foreign_amount", *amount); err != nil {
		return nil, err
	}
	if in.Rate, err = parseDecimal("rate", *rate); err != nil {
		return nil, err
	}
	return b.Billing.RecordInternationalCharge(ctx, *owner, in)
}

func runBalance(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	f := newFlags("balance")
	owner := f.String("owner", "", "owner")
	period := f.String("period", "", "period YYYY-MM")
	amount := f.String("amount", "", "new balance; omit to read")
	if err := f.parse(args); err != nil {
		return nil, err
	}
	if err := f.require("owner", "period"); err != nil {
		return nil, err
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return nil, err
	}
	if !f.isSet("amount") {
		m, err := b.Checking.Balance(ctx, *owner, p)
		if err != nil {
			return nil, err
		}
		return core.CheckingBalance{Owner: *owner, Period: p, Amount: m}, nil
	}
	m, err := parseSignedAmount(*amount)
	if err != nil {
		return nil, err
	}
	return b.Checking.SetCheckingBalance(ctx, *owner, p, m)
}

func runHealth(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	owner, p, err := ownerAndPeriod("health", args)
	if err != nil {
		return nil, err
	}
	return b.Health.Summarize(ctx, owner, p)
}

func runExport(ctx context.Context, b *backend.Backend, args []string) (any, error) {
	owner, p, err := ownerAndPeriod("export", args)
	if err != nil {
		return nil, err
	}
	return b.Export.ExportMonth(ctx, owner, p)
}

func ownerAndPeriod(name string, args []string) (string, core.Period, error) {
	f := newFlags(name)
	owner := f.String("owner", "", "owner")
	period := f.String("period", "", "period YYYY-MM")
	if err := f.parse(args); err != nil {
		return "", core.Period{}, err
	}
	if err := f.require("owner", "period"); err != nil {
		return "", core.Period{}, err
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return "", core.Period{}, err
	}
	return *owner, p, nil
}
