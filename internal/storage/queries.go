package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

type User struct {
	ID        int64
	GoogleID  string
	Email     string
	Name      string
	Picture   string
	CreatedAt string
}

type Transaction struct {
	ID          int64
	UserID      int64
	Name        string
	AmountCents int64
	Category    string
	Date        string
	CreatedAt   string
}

const upsertUser = `-- name: UpsertUser :one
INSERT INTO users (google_id, email, name, picture)
VALUES (?, ?, ?, ?)
ON CONFLICT (google_id) DO UPDATE SET
    name = excluded.name,
    picture = excluded.picture
RETURNING id, google_id, email, name, picture, created_at
`

type UpsertUserParams struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, upsertUser,
		arg.GoogleID,
		arg.Email,
		arg.Name,
		arg.Picture,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.GoogleID,
		&i.Email,
		&i.Name,
		&i.Picture,
		&i.CreatedAt,
	)
	return i, err
}

const userExists = `-- name: UserExists :one
SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)
`

func (q *Queries) UserExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, userExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (user_id, name, amount_cents, category, date)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, name, amount_cents, category, date, created_at
`

type CreateTransactionParams struct {
	UserID      int64
	Name        string
	AmountCents int64
	Category    string
	Date        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.Name,
		arg.AmountCents,
		arg.Category,
		arg.Date,
	)
	return scanTransaction(row)
}

const getTransactionForUser = `-- name: GetTransactionForUser :one
SELECT id, user_id, name, amount_cents, category, date, created_at
FROM transactions
WHERE id = ? AND user_id = ?
`

func (q *Queries) GetTransactionForUser(ctx context.Context, id, userID int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransactionForUser, id, userID)
	return scanTransaction(row)
}

const updateTransaction = `-- name: UpdateTransaction :one
UPDATE transactions
SET name = ?, amount_cents = ?, category = ?, date = ?
WHERE id = ? AND user_id = ?
RETURNING id, user_id, name, amount_cents, category, date, created_at
`

type UpdateTransactionParams struct {
	Name        string
	AmountCents int64
	Category    string
	Date        string
	ID          int64
	UserID      int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Name,
		arg.AmountCents,
		arg.Category,
		arg.Date,
		arg.ID,
		arg.UserID,
	)
	return scanTransaction(row)
}

const listTransactionsInRange = `-- name: ListTransactionsInRange :many
SELECT id, user_id, name, amount_cents, category, date, created_at
FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?
ORDER BY date DESC, id DESC
`

type ListTransactionsInRangeParams struct {
	UserID int64
	Start  string
	Last   string
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, arg.UserID, arg.Start, arg.Last)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.AmountCents,
		&i.Category,
		&i.Date,
		&i.CreatedAt,
	)
	return i, err
}
