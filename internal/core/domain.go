package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	UAH Currency = "UAH"
	USD Currency = "USD"
	EUR Currency = "EUR"
	PLN Currency = "PLN"
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// MaxAccrualDay keeps every accrual day valid in every month.
const MaxAccrualDay = 28

const maxNoteLength = 255

type (
	Currency string

	Date struct {
		time.Time
	}

	// BalanceItem is a named cash/card pair inside a balance record.
	BalanceItem struct {
		ID   int64
		Name string
		Cash decimal.Decimal
		Card decimal.Decimal
	}

	IncomeSource struct {
		ID         int64
		Name       string
		Value      decimal.Decimal
		Currency   Currency
		AccrualDay int // day of month the income is considered received
	}

	// IncomeSourceRecord is the copy of an income source taken when a balance
	// record is saved.
	IncomeSourceRecord struct {
		ID             int64
		IncomeSourceID int64
		Name           string
		Value          decimal.Decimal
		Currency       Currency
		AccrualDay     int
	}

	// ExpectedExpenseRecord holds expected recurring spend per day-of-month bucket.
	ExpectedExpenseRecord struct {
		ID          int64
		Total1to7   decimal.Decimal
		Total8to14  decimal.Decimal
		Total15to21 decimal.Decimal
		Total22to31 decimal.Decimal
	}

	// BalanceRecord is a dated snapshot. It owns its items, income source
	// records and expected expense record.
	BalanceRecord struct {
		ID              int64
		Date            Date
		Items           []BalanceItem
		IncomeSources   []IncomeSourceRecord
		ExpectedExpense *ExpectedExpenseRecord
	}

	// NewBalanceRecord is the input for recording a snapshot.
	NewBalanceRecord struct {
		Date  Date
		Items []BalanceItem
	}

	// StorageItem is money kept aside (savings, deposits) in one currency.
	StorageItem struct {
		ID       int64
		Name     string
		Value    decimal.Decimal
		Currency Currency
	}

	// StorageRecord is a dated snapshot of stored money. Like a balance
	// record there is at most one per date.
	StorageRecord struct {
		ID    int64
		Date  Date
		Items []StorageItem
	}

	Expense struct {
		ID       int64
		Value    decimal.Decimal
		Date     Date
		Category string
		Regular  bool
		Note     string
	}
)

var (
	ErrOutOfBudgetPeriod = errors.New("date is out of budget period")
	ErrReversedDateOrder = errors.New("reversed order of dates")
	ErrInvalidDay        = errors.New("invalid day")
	ErrDuplicateDate     = errors.New("record with provided date already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidDate       = errors.New("invalid date")

	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidAccrualDay = errors.New("invalid accrual day")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrNoBalanceItems    = errors.New("balance record has no items")
	ErrDuplicateItemName = errors.New("duplicate balance item name")
	ErrDuplicateName     = errors.New("name already exists")
	ErrNoteTooLong       = errors.New("note too long")
	ErrEmptyCategory     = errors.New("empty category")
	ErrNoStorageItems    = errors.New("storage items are not provided")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: provided value is not valid: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// AddMonths moves the date by n months, keeping the day of month when possible.
func (d Date) AddMonths(n int) Date {
	first := NewDate(d.Year(), d.Month()+n, 1)
	last := time.Date(first.Year(), first.Time.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Currency) Validate() error {
	switch c {
	case UAH, USD, EUR, PLN:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
	}
}

// Total returns cash plus card.
func (b BalanceItem) Total() decimal.Decimal {
	return b.Cash.Add(b.Card)
}

func (b BalanceItem) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Cash.IsNegative() || b.Card.IsNegative() {
		return fmt.Errorf("%w: balance of %q cannot be negative", ErrInvalidAmount, b.Name)
	}
	return nil
}

func (s IncomeSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !s.Value.IsPositive() {
		return fmt.Errorf("%w: income value must be positive", ErrInvalidAmount)
	}
	if err := s.Currency.Validate(); err != nil {
		return err
	}
	if s.AccrualDay < 1 || s.AccrualDay > MaxAccrualDay {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidAccrualDay, s.AccrualDay, MaxAccrualDay)
	}
	return nil
}

// Record copies the income source into a record owned by a balance snapshot.
func (s IncomeSource) Record() IncomeSourceRecord {
	return IncomeSourceRecord{
		IncomeSourceID: s.ID,
		Name:           s.Name,
		Value:          s.Value,
		Currency:       s.Currency,
		AccrualDay:     s.AccrualDay,
	}
}

// Total sums all four buckets.
func (r ExpectedExpenseRecord) Total() decimal.Decimal {
	return r.Total1to7.Add(r.Total8to14).Add(r.Total15to21).Add(r.Total22to31)
}

func (r ExpectedExpenseRecord) Validate() error {
	for _, v := range []decimal.Decimal{r.Total1to7, r.Total8to14, r.Total15to21, r.Total22to31} {
		if v.IsNegative() {
			return fmt.Errorf("%w: expected expense cannot be negative", ErrInvalidAmount)
		}
	}
	return nil
}

// TotalBalance sums cash and card over all items.
func (r BalanceRecord) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Total())
	}
	return total
}

func (n NewBalanceRecord) Validate() error {
	if err := n.Date.Validate(); err != nil {
		return err
	}
	if len(n.Items) == 0 {
		return ErrNoBalanceItems
	}
	seen := make(map[string]struct{}, len(n.Items))
	for _, item := range n.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateItemName, item.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (i StorageItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Value.IsNegative() {
		return fmt.Errorf("%w: stored value of %q cannot be negative", ErrInvalidAmount, i.Name)
	}
	return i.Currency.Validate()
}

func (r StorageRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(r.Items) == 0 {
		return ErrNoStorageItems
	}
	seen := make(map[string]struct{}, len(r.Items))
	for _, item := range r.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateItemName, item.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// TotalsByCurrency sums item values per currency.
func (r StorageRecord) TotalsByCurrency() map[Currency]decimal.Decimal {
	out := make(map[Currency]decimal.Decimal)
	for _, item := range r.Items {
		out[item.Currency] = out[item.Currency].Add(item.Value)
	}
	return out
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Value.IsPositive() {
		return fmt.Errorf("%w: value cannot be negative or zero", ErrInvalidAmount)
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Note) > maxNoteLength {
		return fmt.Errorf("%w: max %d characters", ErrNoteTooLong, maxNoteLength)
	}
	return nil
}
