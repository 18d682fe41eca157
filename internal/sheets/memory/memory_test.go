package memory

import (
	"context"
	"errors"
	"testing"

	"spender/internal/core"
)

func TestLedgerAppend(t *testing.T) {
	l := New()
	tx := core.Transaction{ID: 4, UserID: 2, Name: "Rent", Amount: core.Money{Cents: 2050}, Category: "Bills", Date: core.NewDate(2024, 3, 5)}

	ref, err := l.AppendTransaction(context.Background(), "transaction.created", tx)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q", ref)
	}

	rows := l.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "2024-03-05" || rows[0][2] != "20.50" || rows[0][6] != "transaction.created" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestLedgerFailWith(t *testing.T) {
	l := New()
	boom := errors.New("quota exceeded")
	l.FailWith(boom)

	if _, err := l.AppendTransaction(context.Background(), "transaction.updated", core.Transaction{ID: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	l.FailWith(nil)
	if _, err := l.AppendTransaction(context.Background(), "transaction.updated", core.Transaction{ID: 1}); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	if len(l.Rows()) != 1 {
		t.Fatalf("failed append must not store a row")
	}
}
