package ports

import (
	"context"

	"spender/internal/core"
)

// Ports for outbound storage adapters.
type (
	// UserStore resolves provider identities to local users.
	UserStore interface {
		// UpsertUser creates the user for id.Subject if absent, otherwise refreshes
		// name and picture. Email and subject are never changed on an existing row.
		UpsertUser(ctx context.Context, id core.Identity) (core.User, error)
	}

	// TransactionStore persists transactions scoped to their owning user.
	TransactionStore interface {
		// ListTransactions returns the user's transactions with date in [w.Start, w.End), newest first.
		ListTransactions(ctx context.Context, userID int64, w core.Window) ([]core.Transaction, error)
		// CreateTransaction returns core.ErrUserNotFound when userID does not exist.
		CreateTransaction(ctx context.Context, userID int64, t core.NewTransaction) (core.Transaction, error)
		// UpdateTransaction returns core.ErrNotFound unless id exists and is owned by userID.
		UpdateTransaction(ctx context.Context, id, userID int64, p core.TransactionPatch) (core.Transaction, error)
	}

	// Pinger reports whether the underlying store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
