package services

import (
	"context"
	"fmt"

	"spender/internal/core"
	"spender/internal/ports"
)

type DashboardService struct {
	store ports.TransactionStore
}

func NewDashboardService(store ports.TransactionStore) *DashboardService {
	return &DashboardService{store: store}
}

// AggregateMonth totals the user's transactions for month, overall and per category.
func (s *DashboardService) AggregateMonth(ctx context.Context, userID int64, month core.Month) (core.MonthOverview, error) {
	if err := checkUserID(userID); err != nil {
		return core.MonthOverview{}, err
	}
	txs, err := s.store.ListTransactions(ctx, userID, month.Window())
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("aggregate %s: %w", month, err)
	}
	overview, err := core.Aggregate(month, txs)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("aggregate %s: %w", month, err)
	}
	return overview, nil
}
