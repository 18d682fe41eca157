package sheets

import (
	"context"

	"spender/internal/core"
)

// LedgerWriter appends transaction snapshots to an external spreadsheet.
// The event kind is recorded next to the row so updates read as new lines.
type LedgerWriter interface {
	AppendTransaction(ctx context.Context, kind string, t core.Transaction) (rowRef string, err error)
}

// Row returns the cell values written for t, in column order:
// date, name, amount, category, user id, transaction id, kind.
func Row(kind string, t core.Transaction) []any {
	return []any{
		t.Date.String(),
		t.Name,
		t.Amount.String(),
		t.Category,
		t.UserID,
		t.ID,
		kind,
	}
}
