package memory

import (
	"context"
	"fmt"
	"sync"

	"spender/internal/core"
	"spender/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

// Ledger keeps appended rows in memory.
type Ledger struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

func New() *Ledger {
	return &Ledger{}
}

// FailWith makes subsequent appends return err. Pass nil to recover.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (l *Ledger) AppendTransaction(_ context.Context, kind string, t core.Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	l.rows = append(l.rows, sheets.Row(kind, t))
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of the appended rows.
func (l *Ledger) Rows() [][]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]any, len(l.rows))
	copy(out, l.rows)
	return out
}
