// Package google appends exported tax reports to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"taxdash/internal/report"
	ports "taxdash/internal/sheets"
)

const DefaultSheetName = "Reports"

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year; the report year is prefixed on append
	sheetBase string

	mu sync.Mutex
	// sheets known to carry the header row
	labelled map[string]bool
}

var _ ports.ReportWriter = (*Client)(nil)

// OptionsFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME and the
// service account from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func OptionsFromEnv() Options {
	opts := Options{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		opts.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return opts
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, OptionsFromEnv())
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	c, err := newClient(ctx, opts,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", opts.SheetName)
	return c, nil
}

func newClient(ctx context.Context, opts Options, clientOpts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetBase:     opts.SheetName,
		labelled:      map[string]bool{},
	}, nil
}

func credentials(opts Options) ([]byte, error) {
	switch {
	case opts.CredentialsJSON != "":
		return []byte(opts.CredentialsJSON), nil
	case opts.CredentialsFile != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendReport appends a row to "<year> <sheet>", the year taken from the
// report's generation time. The first append to an empty sheet writes the
// column header as well. Cells are sent RAW so visitor text is never
// evaluated as a formula.
func (c *Client) AppendReport(ctx context.Context, key string, r report.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, r.GeneratedAt.Year())
	rows := [][]any{ports.ReportRow(key, r)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.labelled[sheet] {
		empty, err := c.isEmpty(ctx, sheet)
		if err != nil {
			return "", err
		}
		if empty {
			rows = append([][]any{ports.Header}, rows...)
		}
	}

	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("'%s'!A:I", sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to %s: %w", sheet, err)
	}
	c.labelled[sheet] = true
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheet, nil
}

func (c *Client) isEmpty(ctx context.Context, sheet string) (bool, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("'%s'!A1:I1", sheet)).
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read header of %s: %w", sheet, err)
	}
	return len(resp.Values) == 0, nil
}

// yearPrefixedName leaves names already starting with a year untouched.
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
