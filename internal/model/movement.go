package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind classifies a movement in an account's log.
type MovementKind string

const (
	KindDeposit    MovementKind = "deposit"
	KindWithdrawal MovementKind = "withdrawal"
)

// DateFormat is the layout used wherever a movement date is rendered or parsed.
const DateFormat = "2006-01-02"

// Movement is one accepted deposit or withdrawal.
// Accounts hand out copies, so a Movement never changes after it is recorded.
type Movement struct {
	Date   time.Time       // midnight of the calendar day, in the clock's location
	Amount decimal.Decimal // always > 0
	Kind   MovementKind
}

// IsOn reports whether the movement was recorded on the calendar day of date.
func (m Movement) IsOn(date time.Time) bool {
	return SameDay(m.Date, date)
}

// IsDeposit reports whether the movement is a deposit.
func (m Movement) IsDeposit() bool { return m.Kind == KindDeposit }

// IsWithdrawal reports whether the movement is a withdrawal.
func (m Movement) IsWithdrawal() bool { return m.Kind == KindWithdrawal }

// DateOf truncates t to midnight of its calendar day, keeping t's location.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares the calendar dates of a and b, ignoring time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
