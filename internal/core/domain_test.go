package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !d.Equal(NewDate(2024, 3, 5).Time) {
		t.Fatalf("unexpected date %s", d)
	}
	for _, bad := range []string{"", "2024-02-30", "05/03/2024", "2024-03-05T10:00:00Z"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		Name:   "Rent",
		Amount: Money{Cents: 100},
		Date:   NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// zero and negative amounts are accepted
	for _, cents := range []int64{0, -250} {
		tx := good
		tx.Amount = Money{Cents: cents}
		if err := tx.Validate(); err != nil {
			t.Fatalf("amount %d expected ok, got %v", cents, err)
		}
	}

	bads := []NewTransaction{
		{Name: "", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{Name: "   ", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{Name: "a", Amount: Money{Cents: 1}},
		{Name: "a", Amount: Money{Cents: 1_000_000_000_000_001}, Date: NewDate(2025, 1, 1)},
		{Name: "a", Amount: Money{Cents: math.MinInt64}, Date: NewDate(2025, 1, 1)},
	}
	for i, tx := range bads {
		err := tx.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
	}
}

func TestNewTransactionLongTextIsAccepted(t *testing.T) {
	tx := NewTransaction{
		Name:     strings.Repeat("家計簿", 100),
		Amount:   Money{Cents: 1_000_000_000_000_000},
		Category: strings.Repeat("食", 150),
		Date:     NewDate(2025, 1, 1),
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected long names and the largest amount to be accepted, got %v", err)
	}

	p := TransactionPatch{Amount: Some(Money{Cents: -1_000_000_000_000_001})}
	if err := p.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for an oversized patch amount, got %v", err)
	}
}

func TestNewTransactionNormalized(t *testing.T) {
	tx := NewTransaction{Name: "  Lunch ", Category: "  "}.Normalized()
	if tx.Name != "Lunch" {
		t.Fatalf("expected trimmed name, got %q", tx.Name)
	}
	if tx.Category != DefaultCategory {
		t.Fatalf("expected %q, got %q", DefaultCategory, tx.Category)
	}
	if got := NormalizeCategory(" Bills "); got != "Bills" {
		t.Fatalf("expected Bills, got %q", got)
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := (Identity{Subject: "123", Email: "a@b.c"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Identity{Email: "a@b.c"}).Validate(); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
	if err := (Identity{Subject: "123"}).Validate(); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
}

func TestTransactionPatchFromJSON(t *testing.T) {
	var p struct {
		Name     Optional[string] `json:"name"`
		Amount   Optional[Money]  `json:"amount"`
		Category Optional[string] `json:"category"`
		Date     Optional[Date]   `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"amount": 50, "category": null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Name.Set || p.Date.Set {
		t.Fatalf("absent fields must not be set")
	}
	if !p.Amount.Set || p.Amount.Value.Cents != 5000 {
		t.Fatalf("expected amount 5000 cents, got %+v", p.Amount)
	}
	if !p.Category.Set || !p.Category.Null {
		t.Fatalf("expected explicit null category, got %+v", p.Category)
	}

	patch := TransactionPatch{Name: p.Name, Amount: p.Amount, Category: p.Category, Date: p.Date}
	if err := patch.Validate(); !errors.Is(err, ErrNullField) {
		t.Fatalf("expected ErrNullField, got %v", err)
	}
}

func TestTransactionPatchApply(t *testing.T) {
	orig := Transaction{
		ID:       7,
		UserID:   1,
		Name:     "Groceries",
		Amount:   Money{Cents: 2000},
		Category: "Shopping",
		Date:     NewDate(2024, 3, 5),
	}

	got := TransactionPatch{Amount: Some(Money{Cents: 5000})}.Apply(orig)
	want := orig
	want.Amount = Money{Cents: 5000}
	if got != want {
		t.Fatalf("amount-only patch changed other fields: %+v", got)
	}

	got = TransactionPatch{Category: Some(""), Name: Some(" Food ")}.Apply(orig)
	if got.Category != DefaultCategory || got.Name != "Food" {
		t.Fatalf("unexpected result %+v", got)
	}

	if !(TransactionPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	if err := (TransactionPatch{Name: Some("")}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
