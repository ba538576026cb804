package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"impegni/internal/backend"
	"impegni/internal/cli"
	"impegni/internal/core"
	"impegni/internal/log"
)

// command is one subcommand. run receives the arguments after the
// subcommand name and returns the value printed as JSON.
type command struct {
	usage string
	run   func(ctx context.Context, b *backend.Backend, args []string) (any, error)
}

var commands = map[string]command{
	"template":            {"template recurring|installment -owner O -name N -direction D -amount A -due-day D -start YYYY-MM ...", runTemplate},
	"templates":           {"templates -owner O [-kind recurring|installment]", runTemplates},
	"categories":          {"categories -owner O", runCategories},
	"list":                {"list -owner O -period YYYY-MM", runList},
	"override":            {"override -owner O -template ID -period YYYY-MM [patch flags]", runOverride},
	"edit-occurrence":     {"edit-occurrence -owner O -id ID [patch flags]", runEditOccurrence},
	"edit-template":       {"edit-template -owner O -id ID -from YYYY-MM [patch flags]", runEditTemplate},
	"delete-occurrence":   {"delete-occurrence -owner O -id ID", runDeleteOccurrence},
	"delete-template":     {"delete-template -owner O -id ID -from YYYY-MM", runDeleteTemplate},
	"classify":            {"classify -owner O -date YYYY-MM-DD", runClassify},
	"billing-configure":   {"billing-configure -owner O -period YYYY-MM -start YYYY-MM-DD -end YYYY-MM-DD", runBillingConfigure},
	"billing-recalculate": {"billing-recalculate -owner O -period YYYY-MM", runBillingRecalculate},
	"billing-periods":     {"billing-periods -owner O", runBillingPeriods},
	"billing-close":       {"billing-close -owner O -network N -period YYYY-MM", runBillingClose},
	"ingest":              {"ingest -owner O -network N -file rows.json|-", runIngest},
	"international":       {"international -owner O -network N -date YYYY-MM-DD -description D -currency C -amount A -rate R", runInternational},
	"balance":             {"balance -owner O -period YYYY-MM [-amount A]", runBalance},
	"health":              {"health -owner O -period YYYY-MM", runHealth},
	"export":              {"export -owner O -period YYYY-MM", runExport},
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentCLI)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	out, err := cmd.run(ctx, res.Backend, os.Args[2:])
	if cerr := res.Cleanup(); cerr != nil {
		logger.Warn("Cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		os.Exit(report(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("Failed to write output", log.FieldError, err)
		os.Exit(1)
	}
}

// report prints err and returns the exit code: 2 for usage and validation
// problems, 3 for missing entities, 1 otherwise.
func report(err error) int {
	fmt.Fprintln(os.Stderr, "error:", err)
	var ve *core.ValidationError
	switch {
	case errors.Is(err, errUsage), errors.As(err, &ve):
		return 2
	case errors.Is(err, core.ErrNotFound):
		return 3
	default:
		return 1
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: impegni <command> [flags]\n\ncommands:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s\n", commands[n].usage)
	}
	fmt.Fprint(os.Stderr, b.String())
}
