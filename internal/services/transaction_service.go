package services

import (
	"context"
	"fmt"
	"log/slog"

	"spender/internal/amqp"
	"spender/internal/core"
	"spender/internal/ports"
)

// EventPublisher receives a notification after every successful write.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev amqp.TransactionEvent) error
}

// TransactionService scopes every operation to the requesting user and
// announces writes on the event bus when one is configured.
type TransactionService struct {
	store  ports.TransactionStore
	events EventPublisher
}

// NewTransactionService accepts a nil publisher to run without events.
func NewTransactionService(store ports.TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// List returns the user's transactions dated within month, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64, month core.Month) ([]core.Transaction, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, userID, month.Window())
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", month, err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Create stores a transaction for userID.
func (s *TransactionService) Create(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	if err := checkUserID(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.CreateTransaction(ctx, userID, nt.Normalized())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, t))
	return t, nil
}

// Update applies the fields present in p to transaction id owned by userID.
func (s *TransactionService) Update(ctx context.Context, id, userID int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := checkUserID(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.UpdateTransaction(ctx, id, userID, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	if !p.IsEmpty() {
		s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionUpdated, t))
	}
	return t, nil
}

// publish never fails the caller: the write is already committed.
func (s *TransactionService) publish(ctx context.Context, ev amqp.TransactionEvent) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping", "type", ev.Type)
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"type", ev.Type,
			"transaction_id", ev.TransactionID,
			"error", err)
	}
}

func checkUserID(userID int64) error {
	if userID <= 0 {
		return &core.ValidationError{Field: "user_id", Err: core.ErrInvalidUserID}
	}
	return nil
}
