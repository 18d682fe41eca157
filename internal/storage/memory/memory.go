package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spender/internal/core"
)

// Store keeps users and transactions in process memory. It is meant for local
// development and tests; nothing survives a restart.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	users     []core.User
	bySubject map[string]int
	items     []core.Transaction
	byID      map[int64]int
}

func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		bySubject: make(map[string]int),
		byID:      make(map[int64]int),
	}
}

// UpsertUser implements ports.UserStore
func (s *Store) UpsertUser(_ context.Context, id core.Identity) (core.User, error) {
	if err := id.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.bySubject[id.Subject]; ok {
		s.users[idx].Name = id.Name
		s.users[idx].Picture = id.Picture
		return s.users[idx], nil
	}

	for _, u := range s.users {
		if u.Email == id.Email {
			return core.User{}, fmt.Errorf("upsert %q: %w", id.Subject, core.ErrEmailTaken)
		}
	}

	u := core.User{
		ID:        int64(len(s.users) + 1),
		Subject:   id.Subject,
		Email:     id.Email,
		Name:      id.Name,
		Picture:   id.Picture,
		CreatedAt: s.now(),
	}
	s.users = append(s.users, u)
	s.bySubject[u.Subject] = len(s.users) - 1
	return u, nil
}

// ListTransactions implements ports.TransactionStore
func (s *Store) ListTransactions(_ context.Context, userID int64, w core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Transaction{}
	for _, t := range s.items {
		if t.UserID == userID && w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// CreateTransaction implements ports.TransactionStore
func (s *Store) CreateTransaction(_ context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	nt = nt.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	if userID < 1 || userID > int64(len(s.users)) {
		return core.Transaction{}, core.ErrUserNotFound
	}

	t := core.Transaction{
		ID:        int64(len(s.items) + 1),
		UserID:    userID,
		Name:      nt.Name,
		Amount:    nt.Amount,
		Category:  nt.Category,
		Date:      nt.Date,
		CreatedAt: s.now(),
	}
	s.items = append(s.items, t)
	s.byID[t.ID] = len(s.items) - 1
	return t, nil
}

// UpdateTransaction implements ports.TransactionStore
func (s *Store) UpdateTransaction(_ context.Context, id, userID int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok || s.items[idx].UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	s.items[idx] = p.Apply(s.items[idx])
	return s.items[idx], nil
}

// Ping implements ports.Pinger
func (s *Store) Ping(context.Context) error {
	return nil
}
