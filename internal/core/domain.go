package core

import (
	"errors"
	"math/rand"
	"strings"
	"time"
)

const (
	Income     TransactionType = "income"
	Expense    TransactionType = "expense"
	Investment TransactionType = "investment"
)

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

const (
	CapViewDashboard     Capability = "view-dashboard"
	CapCreateProject     Capability = "create-project"
	CapEditProject       Capability = "edit-project"
	CapDeleteProject     Capability = "delete-project"
	CapAddTransaction    Capability = "add-transaction"
	CapEditTransaction   Capability = "edit-transaction"
	CapDeleteTransaction Capability = "delete-transaction"
	CapViewReports       Capability = "view-reports"
	CapTakeBackup        Capability = "take-backup"
)

type (
	TransactionType string

	Role string

	Capability string

	// Permissions maps capability names to grants. A nil map grants nothing.
	Permissions map[Capability]bool

	Date struct {
		time.Time
	}

	// Project is a financial entity (e.g. a property) transactions are
	// recorded against. The backend is authoritative; clients hold
	// read-through copies.
	Project struct {
		ID          string
		Name        string
		Description string
		Color       string // CSS color spec, e.g. "hsl(210, 70%, 60%)"
		Icon        string
		CreatedAt   time.Time
	}

	// Transaction is a single dated financial event. Amount is always a
	// magnitude; the sign is derived from Type, never stored negative.
	// An empty ProjectID means the entry is unassigned.
	Transaction struct {
		ID        string
		ProjectID string
		Type      TransactionType
		Amount    float64
		Date      Date
		Note      string
	}

	User struct {
		ID          string
		Email       string
		Name        string
		Role        Role
		Permissions Permissions
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty name")
)

// Backend IDs are UUIDs; local placeholders are 9 lowercase base-36 runes,
// so the two can never collide.
const (
	localIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	localIDLength   = 9
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	default:
		return false
	}
}

// Allows reports whether the capability is granted. Missing entries and nil
// permission sets fail closed.
func (p Permissions) Allows(c Capability) bool {
	if p == nil {
		return false
	}
	return p[c]
}

// NewDate creates a Date for the given calendar day. Dates carry no
// time-of-day component and no timezone conversion is ever applied to them.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Key returns the ISO day string used as the aggregation grouping key.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date shifted by the given number of calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Equal compares calendar days only.
func (d Date) Equal(other Date) bool {
	return d.Key() == other.Key()
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// NewLocalID generates a placeholder identifier for entities created while
// the backend is unreachable. The fixed length and charset keep local IDs
// structurally distinguishable from backend UUIDs so a reconciliation pass
// can find them later.
func NewLocalID() string {
	b := make([]byte, localIDLength)
	for i := range b {
		b[i] = localIDAlphabet[rand.Intn(len(localIDAlphabet))]
	}
	return string(b)
}

// IsLocalID reports whether an identifier was synthesized locally.
func IsLocalID(id string) bool {
	if len(id) != localIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(localIDAlphabet, rune(id[i])) {
			return false
		}
	}
	return true
}
