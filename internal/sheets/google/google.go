package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	ports "mamaboss/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Finances"); rows land in "<year> <base>".
	sheetBase string
	logger    *log.Logger
}

// Ensure interface conformance
var (
	_ ports.FinanceWriter = (*Client)(nil)
	_ ports.FinanceLister = (*Client)(nil)
)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions are passed to the Sheets service as-is, after the
	// credentials. Tests use them to point at a local endpoint.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Finances"
	}

	clientOpts, err := credentialOptions(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(clientOpts, opts.ClientOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created", "sheet", base)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base, logger: logger}, nil
}

// credentialOptions resolves service account credentials from inline JSON,
// a file, or GOOGLE_APPLICATION_CREDENTIALS.
func credentialOptions(ctx context.Context, opts Options, logger *log.Logger) ([]goption.ClientOption, error) {
	if len(opts.ClientOptions) > 0 && opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		return nil, nil
	}

	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		raw, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// AppendFinance writes f as one row of the sheet for the record's year.
// Columns: Month, Day, Type, Description, Category, Amount, User, ID.
func (c *Client) AppendFinance(ctx context.Context, f core.Finance) (string, error) {
	if err := f.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, f.Date.Year())
	row := []any{
		int(f.Date.Month()),
		f.Date.Day(),
		string(f.Type),
		f.Description,
		f.Category,
		f.Amount.Decimal(),
		f.UserID,
		f.ID,
	}

	rng := fmt.Sprintf("%s!A:H", quoteSheet(sheet))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Finance exported",
		log.FieldUserID, f.UserID,
		log.FieldEntityID, f.ID,
		"ref", ref)
	return ref, nil
}

// ListFinances scans the sheet for the given year and returns the rows
// exported for month.
func (c *Client) ListFinances(ctx context.Context, year int, month int) ([]core.Finance, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!A:H", quoteSheet(yearPrefixedName(c.sheetBase, year)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseFinanceRows(resp.Values, year, month), nil
}

func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
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
