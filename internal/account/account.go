// Package account implements a single account that accepts deposits and
// withdrawals under daily limits.
//
// Every rule is checked before any state changes, so a rejected operation
// leaves both the balance and the movement log untouched. An Account is safe
// for concurrent use: one mutex serializes each validate-then-mutate sequence.
package account

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monedero-dev/monedero/internal/clock"
	"github.com/monedero-dev/monedero/internal/model"
)

// Default limits.
var (
	DefaultDailyWithdrawalLimit = decimal.NewFromInt(1000)
	DefaultDailyDepositLimit    = 3
)

// Account owns a balance and the chronological log of its movements.
type Account struct {
	mu                   sync.Mutex
	clock                clock.Clock
	balance              decimal.Decimal
	dailyWithdrawalLimit decimal.Decimal
	dailyDepositLimit    int
	movements            []model.Movement
}

// Option configures an Account at construction.
type Option func(*Account)

// WithClock sets the clock used to decide what "today" is. A nil clock is ignored.
func WithClock(c clock.Clock) Option {
	return func(a *Account) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithDailyWithdrawalLimit sets the maximum total withdrawn per calendar day.
func WithDailyWithdrawalLimit(limit decimal.Decimal) Option {
	return func(a *Account) { a.dailyWithdrawalLimit = limit }
}

// WithDailyDepositLimit sets the maximum number of deposits per calendar day.
func WithDailyDepositLimit(n int) Option {
	return func(a *Account) { a.dailyDepositLimit = n }
}

// New creates an Account with a zero balance.
func New(opts ...Option) *Account {
	return NewWithBalance(decimal.Zero, opts...)
}

// NewWithBalance creates an Account starting at the given balance.
func NewWithBalance(initial decimal.Decimal, opts ...Option) *Account {
	a := &Account{
		clock:                clock.System{},
		balance:              initial,
		dailyWithdrawalLimit: DefaultDailyWithdrawalLimit,
		dailyDepositLimit:    DefaultDailyDepositLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Deposit adds amount to the balance and records a deposit dated today.
// It fails with ErrInvalidAmount if amount <= 0, then with ErrTooManyDeposits
// if today's deposit count has reached the daily limit.
func (a *Account) Deposit(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.today()
	if err := a.validateDeposit(amount, today); err != nil {
		return err
	}
	a.balance = a.balance.Add(amount)
	a.movements = append(a.movements, model.Movement{Date: today, Amount: amount, Kind: model.KindDeposit})
	return nil
}

// Withdraw subtracts amount from the balance and records a withdrawal dated today.
// Checks run in order: ErrInvalidAmount, ErrInsufficientBalance,
// ErrDailyWithdrawalLimitExceeded.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.today()
	if err := a.validateWithdrawal(amount, today); err != nil {
		return err
	}
	a.balance = a.balance.Sub(amount)
	a.movements = append(a.movements, model.Movement{Date: today, Amount: amount, Kind: model.KindWithdrawal})
	return nil
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// SetBalance replaces the balance directly. It records no movement and checks
// no rule, so afterwards the balance no longer equals the sum of the log.
// Meant for setting up a scenario, not as a normal operation.
func (a *Account) SetBalance(value decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = value
}

// TotalWithdrawnOn returns the sum of withdrawals recorded on the calendar day of date.
func (a *Account) TotalWithdrawnOn(date time.Time) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalWithdrawnOn(date)
}

// DepositsOn returns the number of deposits recorded on the calendar day of date.
func (a *Account) DepositsOn(date time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.depositsOn(date)
}

// RemainingWithdrawal returns how much more may be withdrawn today under the
// daily limit, ignoring the balance. Never negative.
func (a *Account) RemainingWithdrawal() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	left := a.dailyWithdrawalLimit.Sub(a.totalWithdrawnOn(a.today()))
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Movements returns a copy of the movement log in the order it was recorded.
func (a *Account) Movements() []model.Movement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Movement, len(a.movements))
	copy(out, a.movements)
	return out
}

// DailyWithdrawalLimit returns the configured daily withdrawal cap.
func (a *Account) DailyWithdrawalLimit() decimal.Decimal {
	return a.dailyWithdrawalLimit
}

// DailyDepositLimit returns the configured number of deposits allowed per day.
func (a *Account) DailyDepositLimit() int {
	return a.dailyDepositLimit
}

// ValidateAmount rejects amounts that are zero or negative.
func ValidateAmount(op Operation, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &RuleError{
			Op:          op,
			Amount:      amount,
			Reason:      ErrInvalidAmount,
			Description: "amount must be positive",
		}
	}
	return nil
}

func (a *Account) validateDeposit(amount decimal.Decimal, today time.Time) error {
	if err := ValidateAmount(OpDeposit, amount); err != nil {
		return err
	}
	if a.depositsOn(today) >= a.dailyDepositLimit {
		return &RuleError{
			Op:          OpDeposit,
			Amount:      amount,
			Reason:      ErrTooManyDeposits,
			Description: fmt.Sprintf("already made the %d deposits allowed per day", a.dailyDepositLimit),
		}
	}
	return nil
}

func (a *Account) validateWithdrawal(amount decimal.Decimal, today time.Time) error {
	if err := ValidateAmount(OpWithdraw, amount); err != nil {
		return err
	}
	if a.balance.Sub(amount).IsNegative() {
		return &RuleError{
			Op:          OpWithdraw,
			Amount:      amount,
			Reason:      ErrInsufficientBalance,
			Description: fmt.Sprintf("cannot withdraw more than the balance of %s", a.balance.StringFixed(2)),
		}
	}
	remaining := a.dailyWithdrawalLimit.Sub(a.totalWithdrawnOn(today))
	if amount.GreaterThan(remaining) {
		return &RuleError{
			Op:     OpWithdraw,
			Amount: amount,
			Reason: ErrDailyWithdrawalLimitExceeded,
			Description: fmt.Sprintf("cannot withdraw more than %s per day, remaining: %s",
				a.dailyWithdrawalLimit.StringFixed(2), remaining.StringFixed(2)),
		}
	}
	return nil
}

func (a *Account) today() time.Time {
	return model.DateOf(a.clock.Now())
}

func (a *Account) depositsOn(date time.Time) int {
	n := 0
	for _, m := range a.movements {
		if m.IsDeposit() && m.IsOn(date) {
			n++
		}
	}
	return n
}

func (a *Account) totalWithdrawnOn(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, m := range a.movements {
		if m.IsWithdrawal() && m.IsOn(date) {
			total = total.Add(m.Amount)
		}
	}
	return total
}
