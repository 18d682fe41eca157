package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spender/internal/core"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements ports.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertUser implements ports.UserStore
func (r *SQLiteRepository) UpsertUser(ctx context.Context, id core.Identity) (core.User, error) {
	if err := id.Validate(); err != nil {
		return core.User{}, err
	}

	row, err := r.queries.UpsertUser(ctx, UpsertUserParams{
		GoogleID: id.Subject,
		Email:    id.Email,
		Name:     id.Name,
		Picture:  id.Picture,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("upsert user %q: %w", id.Subject, core.ErrEmailTaken)
		}
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}

	slog.DebugContext(ctx, "User upserted", "user_id", row.ID)
	return userFromRow(row)
}

// ListTransactions implements ports.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, w core.Window) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsInRange(ctx, ListTransactionsInRangeParams{
		UserID: userID,
		Start:  w.Start.String(),
		Last:   w.Last().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTransaction implements ports.TransactionStore
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	nt = nt.Normalized()

	var row Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		exists, err := q.UserExists(ctx, userID)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return core.ErrUserNotFound
		}
		row, err = q.CreateTransaction(ctx, CreateTransactionParams{
			UserID:      userID,
			Name:        nt.Name,
			AmountCents: nt.Amount.Cents,
			Category:    nt.Category,
			Date:        nt.Date.String(),
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return transactionFromRow(row)
}

// UpdateTransaction implements ports.TransactionStore
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id, userID int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var row Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		current, err := q.GetTransactionForUser(ctx, id, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if p.IsEmpty() {
			row = current
			return nil
		}

		t, err := transactionFromRow(current)
		if err != nil {
			return err
		}
		t = p.Apply(t)

		row, err = q.UpdateTransaction(ctx, UpdateTransactionParams{
			Name:        t.Name,
			AmountCents: t.Amount.Cents,
			Category:    t.Category,
			Date:        t.Date.String(),
			ID:          id,
			UserID:      userID,
		})
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite", "id", row.ID, "user_id", row.UserID)
	return transactionFromRow(row)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func userFromRow(row User) (core.User, error) {
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		ID:        row.ID,
		Subject:   row.GoogleID,
		Email:     row.Email,
		Name:      row.Name,
		Picture:   row.Picture,
		CreatedAt: createdAt,
	}, nil
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: stored date %q: %w", row.ID, row.Date, err)
	}
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Amount:    core.Money{Cents: row.AmountCents},
		Category:  row.Category,
		Date:      date,
		CreatedAt: createdAt,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
