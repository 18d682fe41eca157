package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in    string
		year  int
		month time.Month
		ok    bool
	}{
		{"2024-03", 2024, time.March, true},
		{"2024-12", 2024, time.December, true},
		{"2024-3", 2024, time.March, true},
		{"2024-00", 0, 0, false},
		{"2024-13", 0, 0, false},
		{"24-03", 0, 0, false},
		{"2024/03", 0, 0, false},
		{"2024-03-01", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		m, err := ParseMonth(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidMonth) {
				t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if m.Year != tc.year || m.Month != tc.month {
			t.Fatalf("%q parsed as %v", tc.in, m)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	cases := []struct {
		month      Month
		start, end string
	}{
		{Month{2024, time.March}, "2024-03-01", "2024-04-01"},
		{Month{2024, time.February}, "2024-02-01", "2024-03-01"},
		{Month{2024, time.December}, "2024-12-01", "2025-01-01"},
	}
	for _, tc := range cases {
		w := tc.month.Window()
		if w.Start.String() != tc.start || w.End.String() != tc.end {
			t.Fatalf("%s: got [%s, %s)", tc.month, w.Start, w.End)
		}
	}

	w := Month{2024, time.March}.Window()
	if !w.Contains(NewDate(2024, 3, 1)) || !w.Contains(NewDate(2024, 3, 31)) {
		t.Fatalf("window must include its first and last day")
	}
	if w.Contains(NewDate(2024, 4, 1)) || w.Contains(NewDate(2024, 2, 29)) {
		t.Fatalf("window must exclude days outside [start, end)")
	}
}

func TestWindowLast(t *testing.T) {
	cases := []struct {
		month Month
		last  string
	}{
		{Month{2024, time.February}, "2024-02-29"},
		{Month{2023, time.February}, "2023-02-28"},
		{Month{2024, time.December}, "2024-12-31"},
		{Month{9999, time.December}, "9999-12-31"},
	}
	for _, tc := range cases {
		w := tc.month.Window()
		if got := w.Last().String(); got != tc.last {
			t.Errorf("%s: last = %s, want %s", tc.month, got, tc.last)
		}
		if !w.Contains(w.Last()) {
			t.Errorf("%s: window must contain its last day", tc.month)
		}
	}
}

func TestAggregate(t *testing.T) {
	month := Month{2024, time.March}
	txs := []Transaction{
		{Amount: Money{Cents: 2000}, Category: "Bills", Date: NewDate(2024, 3, 5)},
		{Amount: Money{Cents: 3000}, Category: "Bills", Date: NewDate(2024, 3, 20)},
		{Amount: Money{Cents: 10}, Category: "Shopping", Date: NewDate(2024, 3, 21)},
		{Amount: Money{Cents: 20}, Category: "Eating Out", Date: NewDate(2024, 3, 22)},
		{Amount: Money{Cents: -10}, Category: "Shopping", Date: NewDate(2024, 3, 23)},
	}

	ov, err := Aggregate(month, txs)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Year != 2024 || ov.Month != 3 {
		t.Fatalf("unexpected period %d-%d", ov.Year, ov.Month)
	}
	if ov.Total.Cents != 5020 {
		t.Fatalf("expected total 5020, got %d", ov.Total.Cents)
	}

	want := []CategoryAmount{
		{"Bills", Money{5000}},
		{"Eating Out", Money{20}},
		{"Shopping", Money{0}},
	}
	if len(ov.ByCategory) != len(want) {
		t.Fatalf("expected %d categories, got %+v", len(want), ov.ByCategory)
	}
	var sum int64
	for i, c := range ov.ByCategory {
		if c != want[i] {
			t.Fatalf("category %d: expected %+v, got %+v", i, want[i], c)
		}
		sum += c.Amount.Cents
	}
	if sum != ov.Total.Cents {
		t.Fatalf("breakdown sums to %d, total is %d", sum, ov.Total.Cents)
	}
}

func TestAggregateEmpty(t *testing.T) {
	ov, err := Aggregate(Month{2024, time.January}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Total.Cents != 0 {
		t.Fatalf("expected zero total, got %d", ov.Total.Cents)
	}
	if ov.ByCategory == nil || len(ov.ByCategory) != 0 {
		t.Fatalf("expected empty non-nil breakdown, got %#v", ov.ByCategory)
	}
}

// Summing many cent-sized values must not drift the way float64 does.
func TestAggregateNoDrift(t *testing.T) {
	txs := make([]Transaction, 1000)
	for i := range txs {
		txs[i] = Transaction{Amount: Money{Cents: 10}, Category: "Coffee"}
	}
	ov, err := Aggregate(Month{2024, time.May}, txs)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Total.String() != "100.00" {
		t.Fatalf("expected 100.00, got %s", ov.Total)
	}
}

func TestAggregateOverflow(t *testing.T) {
	big := Money{Cents: math.MaxInt64/2 + 1}
	txs := []Transaction{
		{Amount: big, Category: "Bills"},
		{Amount: big, Category: "Rent"},
	}
	if _, err := Aggregate(Month{2024, time.March}, txs); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow for the total, got %v", err)
	}

	txs[1].Category = "Bills"
	txs = append(txs, Transaction{Amount: Money{Cents: -big.Cents}, Category: "Refund"})
	if _, err := Aggregate(Month{2024, time.March}, txs); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow for a category, got %v", err)
	}

	// Opposite signs cancel out exactly even when partial sums exceed int64.
	txs = []Transaction{
		{Amount: big, Category: "Bills"},
		{Amount: big, Category: "Bills"},
		{Amount: Money{Cents: -big.Cents}, Category: "Bills"},
	}
	ov, err := Aggregate(Month{2024, time.March}, txs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if ov.Total != big || ov.ByCategory[0].Amount != big {
		t.Fatalf("unexpected overview %+v", ov)
	}
}
