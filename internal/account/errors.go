package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rejection reasons. Every failed Deposit or Withdraw returns a *RuleError
// wrapping exactly one of these, so callers match with errors.Is.
var (
	ErrInvalidAmount                = errors.New("invalid amount")
	ErrTooManyDeposits              = errors.New("too many deposits")
	ErrInsufficientBalance          = errors.New("insufficient balance")
	ErrDailyWithdrawalLimitExceeded = errors.New("daily withdrawal limit exceeded")
)

// Operation names the account operation a rule was checked for.
type Operation string

const (
	OpDeposit  Operation = "deposit"
	OpWithdraw Operation = "withdraw"
)

// RuleError describes a rejected operation. The account is unchanged when one is returned.
type RuleError struct {
	Op          Operation
	Amount      decimal.Decimal
	Reason      error
	Description string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Amount.String(), e.Description)
}

// Unwrap returns the sentinel reason.
func (e *RuleError) Unwrap() error {
	return e.Reason
}

var errorNames = []struct {
	err  error
	name string
}{
	{ErrInvalidAmount, "invalid-amount"},
	{ErrTooManyDeposits, "too-many-deposits"},
	{ErrInsufficientBalance, "insufficient-balance"},
	{ErrDailyWithdrawalLimitExceeded, "daily-withdrawal-limit-exceeded"},
}

// ErrorName returns the short kebab-case name of a rule failure,
// or "" if err is not one.
func ErrorName(err error) string {
	for _, en := range errorNames {
		if errors.Is(err, en.err) {
			return en.name
		}
	}
	return ""
}

// ErrorByName is the inverse of ErrorName.
func ErrorByName(name string) (error, bool) {
	for _, en := range errorNames {
		if en.name == name {
			return en.err, true
		}
	}
	return nil, false
}
