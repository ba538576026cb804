package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"impegni/internal/core"
	ports "impegni/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const snapshotSuffix = "Health"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year (e.g. "Impegni"); the exported period's
	// year is prefixed.
	sheetBase string
	now       func() time.Time
}

var _ ports.Exporter = (*Client)(nil)

// Options configures the exporter. Credentials come from CredentialsJSON
// when set, otherwise from the service account file at CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// Now stamps the Exported At column; time.Now when nil.
	Now func() time.Time
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Impegni"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base, now: now}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportOccurrences appends occs to "<year> <base>" as a new batch.
func (c *Client) ExportOccurrences(ctx context.Context, owner string, p core.Period, occs []core.Occurrence) (string, error) {
	sheet := yearPrefixedName(c.sheetBase, p.Year)
	ref, err := c.append(ctx, sheet, len(ports.OccurrenceHeader), ports.OccurrenceRows(owner, occs, c.exportTime()))
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Occurrences exported to sheet",
		"owner", owner,
		"period", p.String(),
		"rows", len(occs),
		"sheets_ref", ref)
	return ref, nil
}

// ExportSnapshot appends snap to "<year> <base> Health".
func (c *Client) ExportSnapshot(ctx context.Context, snap core.HealthSnapshot) (string, error) {
	sheet := yearPrefixedName(c.sheetBase+" "+snapshotSuffix, snap.Target.Year)
	ref, err := c.append(ctx, sheet, len(ports.SnapshotHeader), ports.SnapshotRows(snap, c.exportTime()))
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Health snapshot exported to sheet",
		"owner", snap.Owner,
		"target", snap.Target.String(),
		"sheets_ref", ref)
	return ref, nil
}

func (c *Client) exportTime() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Client) append(ctx context.Context, sheet string, cols int, rows [][]string) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	rng := columnRange(sheet, cols)
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// columnRange returns the A1 range spanning the first cols columns of sheet.
// Sheet names with spaces are quoted.
func columnRange(sheet string, cols int) string {
	last := string(rune('A' + cols - 1))
	return fmt.Sprintf("'%s'!A:%s", strings.ReplaceAll(sheet, "'", "''"), last)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
