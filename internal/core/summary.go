package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start Date
	End   Date
}

// ParseMonth parses "YYYY-MM". A single-digit month ("2024-3") is accepted.
func ParseMonth(s string) (Month, error) {
	yearPart, monthPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(yearPart) != 4 || len(monthPart) == 0 || len(monthPart) > 2 {
		return Month{}, fmt.Errorf("%w: %q, expected YYYY-MM", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 {
		return Month{}, fmt.Errorf("%w: %q, expected YYYY-MM", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(monthPart)
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("%w: %q, month must be 01-12", ErrInvalidMonth, s)
	}
	return Month{Year: year, Month: time.Month(m)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Window returns [first day of m, first day of the following month).
// December rolls over to January 1 of the next year.
func (m Month) Window() Window {
	endYear, endMonth := m.Year, m.Month+1
	if m.Month == time.December {
		endYear, endMonth = m.Year+1, time.January
	}
	return Window{
		Start: NewDate(m.Year, int(m.Month), 1),
		End:   NewDate(endYear, int(endMonth), 1),
	}
}

// Last returns the final day inside the window. Unlike End it stays within
// four-digit years, so it compares correctly as a YYYY-MM-DD string.
func (w Window) Last() Date {
	return Date{w.End.AddDate(0, 0, -1)}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start.Time) && d.Before(w.End.Time)
}

// Aggregate folds transactions into a per-category breakdown and a grand total.
// Sums are exact decimals, so the breakdown always adds up to Total; a sum that
// does not fit in Money fails with ErrAmountOverflow instead of wrapping.
// Categories are ordered by amount descending, then by name.
func Aggregate(month Month, txs []Transaction) (MonthOverview, error) {
	overview := MonthOverview{
		Year:       month.Year,
		Month:      int(month.Month),
		ByCategory: []CategoryAmount{},
	}

	var total decimal.Decimal
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		amount := tx.Amount.Decimal()
		sums[tx.Category] = sums[tx.Category].Add(amount)
		total = total.Add(amount)
	}

	var err error
	if overview.Total, err = MoneyFromDecimal(total); err != nil {
		return MonthOverview{}, fmt.Errorf("total for %s: %w", month, err)
	}
	for name, sum := range sums {
		amount, err := MoneyFromDecimal(sum)
		if err != nil {
			return MonthOverview{}, fmt.Errorf("category %q for %s: %w", name, month, err)
		}
		overview.ByCategory = append(overview.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(overview.ByCategory, func(i, j int) bool {
		a, b := overview.ByCategory[i], overview.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	return overview, nil
}
