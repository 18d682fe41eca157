package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"spender/internal/amqp"
	"spender/internal/cache"
	"spender/internal/core"
	"spender/internal/ports"
	"spender/internal/sheets"
)

type summaryKey struct {
	userID int64
	month  string
}

const (
	maxSummaries = 10000
	summaryTTL   = 24 * time.Hour
)

// SummaryWorker recomputes the month overview touched by each transaction
// event, keeps the latest result per user and month, and mirrors the
// transaction to a spreadsheet ledger when one is configured.
type SummaryWorker struct {
	store  ports.TransactionStore
	ledger sheets.LedgerWriter
	latest *cache.LRU[summaryKey, core.MonthOverview]

	processed int64
	dropped   int64
	exported  int64
}

// NewSummaryWorker accepts a nil ledger to skip spreadsheet export.
func NewSummaryWorker(store ports.TransactionStore, ledger sheets.LedgerWriter) *SummaryWorker {
	return &SummaryWorker{
		store:  store,
		ledger: ledger,
		latest: cache.NewLRU[summaryKey, core.MonthOverview](maxSummaries, summaryTTL),
	}
}

// HandleTransactionEvent processes a single transaction event from AMQP.
// A returned error requeues the message, so events that can never succeed
// are logged and acknowledged instead.
func (w *SummaryWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	month, err := core.ParseMonth(ev.Month)
	if err != nil {
		atomic.AddInt64(&w.dropped, 1)
		slog.WarnContext(ctx, "Dropping transaction event with invalid month",
			"type", ev.Type,
			"transaction_id", ev.TransactionID,
			"month", ev.Month)
		return nil
	}

	txs, err := w.store.ListTransactions(ctx, ev.UserID, month.Window())
	if err != nil {
		return fmt.Errorf("list %s for user %d: %w", month, ev.UserID, err)
	}

	if w.ledger != nil {
		if err := w.export(ctx, ev, txs); err != nil {
			return err
		}
	}

	overview, err := core.Aggregate(month, txs)
	if err != nil {
		// Retrying cannot shrink the sum; acknowledge and move on.
		atomic.AddInt64(&w.dropped, 1)
		slog.ErrorContext(ctx, "Dropping transaction event, month total out of range",
			"transaction_id", ev.TransactionID,
			"user_id", ev.UserID,
			"month", month.String(),
			"error", err)
		return nil
	}
	w.latest.Set(summaryKey{userID: ev.UserID, month: month.String()}, overview)
	atomic.AddInt64(&w.processed, 1)

	slog.InfoContext(ctx, "Month summary refreshed",
		"type", ev.Type,
		"transaction_id", ev.TransactionID,
		"user_id", ev.UserID,
		"month", month.String(),
		"total", overview.Total.String(),
		"categories", len(overview.ByCategory))
	return nil
}

// export appends the event's transaction to the ledger. A transaction that
// has since moved out of the event's month is skipped: a later event
// carries its new month.
func (w *SummaryWorker) export(ctx context.Context, ev *amqp.TransactionEvent, txs []core.Transaction) error {
	for _, t := range txs {
		if t.ID != ev.TransactionID {
			continue
		}
		ref, err := w.ledger.AppendTransaction(ctx, ev.Type, t)
		if err != nil {
			return fmt.Errorf("export transaction %d: %w", t.ID, err)
		}
		atomic.AddInt64(&w.exported, 1)
		slog.DebugContext(ctx, "Transaction exported", "transaction_id", t.ID, "row", ref)
		return nil
	}
	slog.WarnContext(ctx, "Transaction not in event month, skipping export",
		"transaction_id", ev.TransactionID,
		"month", ev.Month)
	return nil
}

// Summary returns the last overview computed for userID and month.
func (w *SummaryWorker) Summary(userID int64, month core.Month) (core.MonthOverview, bool) {
	return w.latest.Get(summaryKey{userID: userID, month: month.String()})
}

// Stats returns how many events were applied, dropped and exported.
func (w *SummaryWorker) Stats() (processed, dropped, exported int64) {
	return atomic.LoadInt64(&w.processed), atomic.LoadInt64(&w.dropped), atomic.LoadInt64(&w.exported)
}

// Prune drops summaries older than a day and returns how many were removed.
func (w *SummaryWorker) Prune() int {
	return w.latest.CleanExpired()
}
