// Package postgres stores users and transactions in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spender/internal/core"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, applies migrations and returns a ready repository.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewRepository(pool), nil
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Ping implements ports.Pinger
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// UpsertUser implements ports.UserStore
func (r *Repository) UpsertUser(ctx context.Context, id core.Identity) (core.User, error) {
	if err := id.Validate(); err != nil {
		return core.User{}, err
	}

	var u core.User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (google_id, email, name, picture)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (google_id) DO UPDATE SET
		     name = EXCLUDED.name,
		     picture = EXCLUDED.picture
		 RETURNING id, google_id, email, name, picture, created_at`,
		id.Subject, id.Email, id.Name, id.Picture,
	).Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.Picture, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, fmt.Errorf("upsert user %q: %w", id.Subject, core.ErrEmailTaken)
		}
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// ListTransactions implements ports.TransactionStore
func (r *Repository) ListTransactions(ctx context.Context, userID int64, w core.Window) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, amount_cents, category, date, created_at
		 FROM transactions
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date DESC, id DESC`,
		userID, w.Start.Time, w.End.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTransaction implements ports.TransactionStore
func (r *Repository) CreateTransaction(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	nt = nt.Normalized()

	var t core.Transaction
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return core.ErrUserNotFound
		}

		var err error
		t, err = scanTransaction(tx.QueryRow(ctx,
			`INSERT INTO transactions (user_id, name, amount_cents, category, date)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, user_id, name, amount_cents, category, date, created_at`,
			userID, nt.Name, nt.Amount.Cents, nt.Category, nt.Date.Time,
		))
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

// UpdateTransaction implements ports.TransactionStore
func (r *Repository) UpdateTransaction(ctx context.Context, id, userID int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var t core.Transaction
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT id, user_id, name, amount_cents, category, date, created_at
			 FROM transactions
			 WHERE id = $1 AND user_id = $2
			 FOR UPDATE`,
			id, userID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if p.IsEmpty() {
			t = current
			return nil
		}

		next := p.Apply(current)
		t, err = scanTransaction(tx.QueryRow(ctx,
			`UPDATE transactions
			 SET name = $1, amount_cents = $2, category = $3, date = $4
			 WHERE id = $5 AND user_id = $6
			 RETURNING id, user_id, name, amount_cents, category, date, created_at`,
			next.Name, next.Amount.Cents, next.Category, next.Date.Time, id, userID,
		))
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated in Postgres", "id", t.ID, "user_id", t.UserID)
	return t, nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t    core.Transaction
		date time.Time
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Amount.Cents, &t.Category, &date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
