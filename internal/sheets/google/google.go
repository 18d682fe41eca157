package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"spender/internal/core"
	"spender/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultLedgerName is the sheet base name used when none is configured.
const DefaultLedgerName = "Ledger"

var _ sheets.LedgerWriter = (*Client)(nil)

// Options configures a ledger client. One of CredentialsJSON,
// CredentialsFile or HTTPClient must be set.
type Options struct {
	SpreadsheetID string
	// LedgerName is the base sheet name; the transaction year is prefixed.
	LedgerName      string
	CredentialsJSON []byte
	CredentialsFile string

	// Endpoint and HTTPClient override the API location and transport.
	Endpoint   string
	HTTPClient *http.Client
}

// Client appends transaction rows to a yearly ledger sheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerBase    string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.LedgerName)
	if base == "" {
		base = DefaultLedgerName
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerBase:    base,
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var clientOpts []goption.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, goption.WithEndpoint(opts.Endpoint))
	}

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, goption.WithHTTPClient(opts.HTTPClient))
		return gsheet.NewService(ctx, clientOpts...)
	}

	credentialsJSON := opts.CredentialsJSON
	switch {
	case len(credentialsJSON) > 0:
		slog.DebugContext(ctx, "Using inline service account credentials")
	case opts.CredentialsFile != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
		slog.DebugContext(ctx, "Read service account credentials", "path", opts.CredentialsFile, "size", len(b))
	default:
		return nil, errors.New("missing service account credentials")
	}

	clientOpts = append(clientOpts,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendTransaction writes t as a new row at the end of the ledger sheet for
// the transaction's year and returns the updated range.
func (c *Client) AppendTransaction(ctx context.Context, kind string, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if t.ID <= 0 {
		return "", fmt.Errorf("invalid transaction id %d", t.ID)
	}

	sheet := yearPrefixedName(c.ledgerBase, t.Date.Year())
	rng := fmt.Sprintf("%s!A:G", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(kind, t)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
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
