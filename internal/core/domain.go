package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is stored when a transaction is created or updated without a category.
const DefaultCategory = "Others"

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date without a time component, always at UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User is the local record for an identity issued by the external provider.
	User struct {
		ID        int64
		Subject   string // provider subject id, immutable
		Email     string // immutable once set
		Name      string
		Picture   string
		CreatedAt time.Time
	}

	// Identity carries the attributes used to resolve or create a User.
	Identity struct {
		Subject string
		Email   string
		Name    string
		Picture string
	}

	Transaction struct {
		ID        int64
		UserID    int64
		Name      string
		Amount    Money
		Category  string
		Date      Date
		CreatedAt time.Time
	}

	// NewTransaction holds the fields required to create a Transaction.
	NewTransaction struct {
		Name     string
		Amount   Money
		Category string
		Date     Date
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount out of range")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptySubject   = errors.New("empty subject id")
	ErrEmptyEmail     = errors.New("empty email")
	ErrEmailTaken     = errors.New("email already belongs to another user")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrNullField      = errors.New("field cannot be null")
)

// ValidationError reports which input field failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Out-of-range days such as 2024-02-30 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeCategory trims the category and falls back to DefaultCategory when empty.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", ErrEmptyName)
	}
	return nil
}

func validateAmount(m Money) error {
	if m.Decimal().Abs().GreaterThan(MaxAmount) {
		return invalid("amount", ErrInvalidAmount)
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if err := validateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

// Normalized returns a copy with trimmed name and the default category applied.
func (t NewTransaction) Normalized() NewTransaction {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = NormalizeCategory(t.Category)
	return t
}

func (id Identity) Validate() error {
	if strings.TrimSpace(id.Subject) == "" {
		return invalid("sub", ErrEmptySubject)
	}
	if strings.TrimSpace(id.Email) == "" {
		return invalid("email", ErrEmptyEmail)
	}
	return nil
}

// Optional marks whether a field was present in a partial update.
// Null is set when the field was present with an explicit JSON null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// TransactionPatch is a partial update: only fields with Set are applied.
type TransactionPatch struct {
	Name     Optional[string]
	Amount   Optional[Money]
	Category Optional[string]
	Date     Optional[Date]
}

// IsEmpty reports whether no field is present.
func (p TransactionPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Amount.Set && !p.Category.Set && !p.Date.Set
}

// Validate rejects explicit nulls, since every transaction field is non-nullable,
// and applies the same rules as creation to the present fields.
func (p TransactionPatch) Validate() error {
	switch {
	case p.Name.Null:
		return invalid("name", ErrNullField)
	case p.Amount.Null:
		return invalid("amount", ErrNullField)
	case p.Category.Null:
		return invalid("category", ErrNullField)
	case p.Date.Null:
		return invalid("date", ErrNullField)
	}
	if p.Name.Set {
		if err := validateName(p.Name.Value); err != nil {
			return err
		}
	}
	if p.Amount.Set {
		if err := validateAmount(p.Amount.Value); err != nil {
			return err
		}
	}
	if p.Date.Set {
		if err := p.Date.Value.Validate(); err != nil {
			return invalid("date", err)
		}
	}
	return nil
}

// Apply returns t with every present field overwritten.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Name.Set {
		t.Name = strings.TrimSpace(p.Name.Value)
	}
	if p.Amount.Set {
		t.Amount = p.Amount.Value
	}
	if p.Category.Set {
		t.Category = NormalizeCategory(p.Category.Value)
	}
	if p.Date.Set {
		t.Date = p.Date.Value
	}
	return t
}
