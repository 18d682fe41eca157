package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"spender/internal/amqp"
	"spender/internal/core"
	sheetsmem "spender/internal/sheets/memory"
	"spender/internal/storage/memory"
)

type failingStore struct{}

func (failingStore) ListTransactions(context.Context, int64, core.Window) ([]core.Transaction, error) {
	return nil, errors.New("database is locked")
}

func (failingStore) CreateTransaction(context.Context, int64, core.NewTransaction) (core.Transaction, error) {
	return core.Transaction{}, errors.New("database is locked")
}

func (failingStore) UpdateTransaction(context.Context, int64, int64, core.TransactionPatch) (core.Transaction, error) {
	return core.Transaction{}, errors.New("database is locked")
}

func seed(t *testing.T, store *memory.Store) (core.User, core.Transaction) {
	t.Helper()
	ctx := context.Background()
	u, err := store.UpsertUser(ctx, core.Identity{Subject: "sub-1", Email: "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	var last core.Transaction
	for _, nt := range []core.NewTransaction{
		{Name: "a", Amount: core.Money{Cents: 2000}, Category: "Bills", Date: core.NewDate(2024, 3, 5)},
		{Name: "b", Amount: core.Money{Cents: 3000}, Category: "Bills", Date: core.NewDate(2024, 3, 20)},
		{Name: "c", Amount: core.Money{Cents: 1000}, Category: "Shopping", Date: core.NewDate(2024, 4, 1)},
	} {
		if last, err = store.CreateTransaction(ctx, u.ID, nt); err != nil {
			t.Fatal(err)
		}
	}
	return u, last
}

func TestHandleTransactionEventRefreshesSummary(t *testing.T) {
	store := memory.New()
	u, last := seed(t, store)

	w := NewSummaryWorker(store, nil)
	ev := amqp.NewTransactionEvent(amqp.EventTransactionCreated, last)
	if err := w.HandleTransactionEvent(context.Background(), &ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	april := core.Month{Year: 2024, Month: time.April}
	got, ok := w.Summary(u.ID, april)
	if !ok {
		t.Fatal("expected a summary for 2024-04")
	}
	if got.Total.Cents != 1000 || len(got.ByCategory) != 1 || got.ByCategory[0].Name != "Shopping" {
		t.Fatalf("unexpected overview %+v", got)
	}
	if _, ok := w.Summary(u.ID, core.Month{Year: 2024, Month: time.March}); ok {
		t.Fatal("March was never touched by an event")
	}
	if processed, dropped, exported := w.Stats(); processed != 1 || dropped != 0 || exported != 0 {
		t.Fatalf("stats = %d/%d/%d", processed, dropped, exported)
	}
}

func TestHandleTransactionEventExportsToLedger(t *testing.T) {
	store := memory.New()
	_, last := seed(t, store)
	ledger := sheetsmem.New()
	w := NewSummaryWorker(store, ledger)

	ev := amqp.NewTransactionEvent(amqp.EventTransactionCreated, last)
	if err := w.HandleTransactionEvent(context.Background(), &ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := ledger.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(rows))
	}
	if rows[0][1] != "c" || rows[0][2] != "10.00" || rows[0][6] != amqp.EventTransactionCreated {
		t.Fatalf("unexpected row %v", rows[0])
	}
	if _, _, exported := w.Stats(); exported != 1 {
		t.Fatalf("exported = %d, want 1", exported)
	}

	stale := ev
	stale.Month = "2024-03"
	if err := w.HandleTransactionEvent(context.Background(), &stale); err != nil {
		t.Fatalf("stale month: %v", err)
	}
	if len(ledger.Rows()) != 1 {
		t.Fatal("a transaction outside the event month must not be exported")
	}
}

func TestHandleTransactionEventRequeuesLedgerFailure(t *testing.T) {
	store := memory.New()
	u, last := seed(t, store)
	ledger := sheetsmem.New()
	ledger.FailWith(errors.New("quota exceeded"))
	w := NewSummaryWorker(store, ledger)

	ev := amqp.NewTransactionEvent(amqp.EventTransactionUpdated, last)
	if err := w.HandleTransactionEvent(context.Background(), &ev); err == nil {
		t.Fatal("ledger failures must be returned so the message is requeued")
	}
	if _, ok := w.Summary(u.ID, core.Month{Year: 2024, Month: time.April}); ok {
		t.Fatal("summary must not be stored when the event is requeued")
	}
}

func TestHandleTransactionEventDropsInvalidMonth(t *testing.T) {
	w := NewSummaryWorker(failingStore{}, nil)
	ev := &amqp.TransactionEvent{Type: amqp.EventTransactionUpdated, TransactionID: 1, UserID: 1, Month: "2024-13"}

	if err := w.HandleTransactionEvent(context.Background(), ev); err != nil {
		t.Fatalf("invalid month should be acknowledged, got %v", err)
	}
	if _, dropped, _ := w.Stats(); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
}

func TestHandleTransactionEventRequeuesStorageFailure(t *testing.T) {
	w := NewSummaryWorker(failingStore{}, nil)
	ev := &amqp.TransactionEvent{Type: amqp.EventTransactionCreated, TransactionID: 1, UserID: 1, Month: "2024-03"}

	if err := w.HandleTransactionEvent(context.Background(), ev); err == nil {
		t.Fatal("storage failures must be returned so the message is requeued")
	}
}
