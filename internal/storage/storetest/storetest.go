// Package storetest holds the behavioural suite every storage backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"spender/internal/core"
	"spender/internal/ports"
)

// Store is the full set of ports a backend provides.
type Store interface {
	ports.UserStore
	ports.TransactionStore
}

// StoreSuite runs against a fresh, empty store for each test.
type StoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) Store

	ctx   context.Context
	store Store
}

// Run executes the suite with stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	suite.Run(t, &StoreSuite{NewStore: newStore})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *StoreSuite) user(subject, email string) core.User {
	u, err := s.store.UpsertUser(s.ctx, core.Identity{Subject: subject, Email: email, Name: "Test " + subject})
	require.NoError(s.T(), err)
	return u
}

func (s *StoreSuite) create(userID int64, name string, cents int64, category string, date core.Date) core.Transaction {
	tx, err := s.store.CreateTransaction(s.ctx, userID, core.NewTransaction{
		Name:     name,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     date,
	})
	require.NoError(s.T(), err, "create %s", name)
	return tx
}

func (s *StoreSuite) TestUpsertUserIsIdempotent() {
	id := core.Identity{Subject: "sub-1", Email: "ada@example.com", Name: "Ada", Picture: "https://img/1"}

	first, err := s.store.UpsertUser(s.ctx, id)
	require.NoError(s.T(), err)
	second, err := s.store.UpsertUser(s.ctx, id)
	require.NoError(s.T(), err)

	assert.NotZero(s.T(), first.ID)
	assert.Equal(s.T(), first.ID, second.ID)
	assert.Equal(s.T(), "sub-1", second.Subject)
	assert.Equal(s.T(), "ada@example.com", second.Email)
	assert.False(s.T(), first.CreatedAt.IsZero())
}

func (s *StoreSuite) TestUpsertUserRefreshesProfileOnly() {
	first := s.user("sub-1", "ada@example.com")

	refreshed, err := s.store.UpsertUser(s.ctx, core.Identity{
		Subject: "sub-1",
		Email:   "changed@example.com",
		Name:    "Ada Lovelace",
		Picture: "https://img/2",
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.ID, refreshed.ID)
	assert.Equal(s.T(), "Ada Lovelace", refreshed.Name)
	assert.Equal(s.T(), "https://img/2", refreshed.Picture)
	assert.Equal(s.T(), "ada@example.com", refreshed.Email, "email is immutable once set")
}

func (s *StoreSuite) TestUpsertUserRejectsDuplicateEmail() {
	s.user("sub-1", "ada@example.com")
	_, err := s.store.UpsertUser(s.ctx, core.Identity{Subject: "sub-2", Email: "ada@example.com"})
	assert.ErrorIs(s.T(), err, core.ErrEmailTaken)
}

func (s *StoreSuite) TestCreateTransactionDefaultsCategory() {
	u := s.user("sub-1", "ada@example.com")
	tx := s.create(u.ID, "Coffee", 350, "", core.NewDate(2024, 3, 5))

	assert.NotZero(s.T(), tx.ID)
	assert.Equal(s.T(), u.ID, tx.UserID)
	assert.Equal(s.T(), core.DefaultCategory, tx.Category)
	assert.Equal(s.T(), int64(350), tx.Amount.Cents)
	assert.Equal(s.T(), "2024-03-05", tx.Date.String())
	assert.False(s.T(), tx.CreatedAt.IsZero())
}

func (s *StoreSuite) TestCreateTransactionAcceptsZeroAndNegativeAmounts() {
	u := s.user("sub-1", "ada@example.com")
	refund := s.create(u.ID, "Refund", -1999, "Shopping", core.NewDate(2024, 3, 6))
	free := s.create(u.ID, "Sample", 0, "Shopping", core.NewDate(2024, 3, 7))

	assert.Equal(s.T(), int64(-1999), refund.Amount.Cents)
	assert.Equal(s.T(), int64(0), free.Amount.Cents)
}

func (s *StoreSuite) TestCreateTransactionUnknownUser() {
	_, err := s.store.CreateTransaction(s.ctx, 9999, core.NewTransaction{
		Name:   "Ghost",
		Amount: core.Money{Cents: 1},
		Date:   core.NewDate(2024, 3, 5),
	})
	assert.ErrorIs(s.T(), err, core.ErrUserNotFound)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *StoreSuite) TestListTransactionsWindowAndOrder() {
	u := s.user("sub-1", "ada@example.com")
	other := s.user("sub-2", "bob@example.com")

	s.create(u.ID, "Feb", 100, "Bills", core.NewDate(2024, 2, 29))
	first := s.create(u.ID, "Mar first", 200, "Bills", core.NewDate(2024, 3, 1))
	mid := s.create(u.ID, "Mar mid", 300, "Bills", core.NewDate(2024, 3, 15))
	last := s.create(u.ID, "Mar last", 400, "Bills", core.NewDate(2024, 3, 31))
	s.create(u.ID, "Apr", 500, "Bills", core.NewDate(2024, 4, 1))
	s.create(other.ID, "Other user", 600, "Bills", core.NewDate(2024, 3, 10))

	march := core.Month{Year: 2024, Month: 3}.Window()
	got, err := s.store.ListTransactions(s.ctx, u.ID, march)
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 3)

	assert.Equal(s.T(), last.ID, got[0].ID)
	assert.Equal(s.T(), mid.ID, got[1].ID)
	assert.Equal(s.T(), first.ID, got[2].ID)
}

func (s *StoreSuite) TestListTransactionsEmpty() {
	u := s.user("sub-1", "ada@example.com")
	got, err := s.store.ListTransactions(s.ctx, u.ID, core.Month{Year: 2030, Month: 1}.Window())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}

func (s *StoreSuite) TestListTransactionsDecemberRollover() {
	u := s.user("sub-1", "ada@example.com")
	s.create(u.ID, "Gifts", 5000, "Shopping", core.NewDate(2024, 12, 31))
	s.create(u.ID, "New year", 100, "Eating Out", core.NewDate(2025, 1, 1))

	got, err := s.store.ListTransactions(s.ctx, u.ID, core.Month{Year: 2024, Month: 12}.Window())
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), "Gifts", got[0].Name)
}

func (s *StoreSuite) TestListTransactionsLastRepresentableMonth() {
	u := s.user("sub-1", "ada@example.com")
	s.create(u.ID, "Far future", 700, "Bills", core.NewDate(9999, 12, 5))
	s.create(u.ID, "New year's eve", 300, "Bills", core.NewDate(9999, 12, 31))
	s.create(u.ID, "November", 100, "Bills", core.NewDate(9999, 11, 30))

	got, err := s.store.ListTransactions(s.ctx, u.ID, core.Month{Year: 9999, Month: 12}.Window())
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2)
	assert.Equal(s.T(), "New year's eve", got[0].Name)
	assert.Equal(s.T(), "Far future", got[1].Name)
}

func (s *StoreSuite) TestUpdateTransactionChangesOnlyPresentFields() {
	u := s.user("sub-1", "ada@example.com")
	orig := s.create(u.ID, "Groceries", 2000, "Shopping", core.NewDate(2024, 3, 5))

	updated, err := s.store.UpdateTransaction(s.ctx, orig.ID, u.ID, core.TransactionPatch{
		Amount: core.Some(core.Money{Cents: 5000}),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), int64(5000), updated.Amount.Cents)
	assert.Equal(s.T(), orig.Name, updated.Name)
	assert.Equal(s.T(), orig.Category, updated.Category)
	assert.Equal(s.T(), orig.Date.String(), updated.Date.String())

	listed, err := s.store.ListTransactions(s.ctx, u.ID, core.Month{Year: 2024, Month: 3}.Window())
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 1)
	assert.Equal(s.T(), int64(5000), listed[0].Amount.Cents, "update must be persisted")
}

func (s *StoreSuite) TestUpdateTransactionAllFields() {
	u := s.user("sub-1", "ada@example.com")
	orig := s.create(u.ID, "Groceries", 2000, "Shopping", core.NewDate(2024, 3, 5))

	updated, err := s.store.UpdateTransaction(s.ctx, orig.ID, u.ID, core.TransactionPatch{
		Name:     core.Some("Dinner"),
		Amount:   core.Some(core.Money{Cents: 4550}),
		Category: core.Some("Eating Out"),
		Date:     core.Some(core.NewDate(2024, 4, 2)),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), orig.ID, updated.ID)
	assert.Equal(s.T(), "Dinner", updated.Name)
	assert.Equal(s.T(), int64(4550), updated.Amount.Cents)
	assert.Equal(s.T(), "Eating Out", updated.Category)
	assert.Equal(s.T(), "2024-04-02", updated.Date.String())
}

func (s *StoreSuite) TestUpdateTransactionEmptyPatchIsNoop() {
	u := s.user("sub-1", "ada@example.com")
	orig := s.create(u.ID, "Groceries", 2000, "Shopping", core.NewDate(2024, 3, 5))

	got, err := s.store.UpdateTransaction(s.ctx, orig.ID, u.ID, core.TransactionPatch{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), orig.Name, got.Name)
	assert.Equal(s.T(), orig.Amount, got.Amount)
}

func (s *StoreSuite) TestUpdateTransactionOwnershipIsolation() {
	owner := s.user("sub-1", "ada@example.com")
	intruder := s.user("sub-2", "bob@example.com")
	tx := s.create(owner.ID, "Rent", 90000, "Bills", core.NewDate(2024, 3, 1))

	_, err := s.store.UpdateTransaction(s.ctx, tx.ID, intruder.ID, core.TransactionPatch{
		Amount: core.Some(core.Money{Cents: 1}),
	})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	_, err = s.store.UpdateTransaction(s.ctx, tx.ID+1000, owner.ID, core.TransactionPatch{
		Amount: core.Some(core.Money{Cents: 1}),
	})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	listed, err := s.store.ListTransactions(s.ctx, owner.ID, core.Month{Year: 2024, Month: 3}.Window())
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 1)
	assert.Equal(s.T(), int64(90000), listed[0].Amount.Cents)
}
