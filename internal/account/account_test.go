package account

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monedero-dev/monedero/internal/clock"
	"github.com/monedero-dev/monedero/internal/model"
)

var day1 = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestAccount(opts ...Option) (*Account, *clock.Manual) {
	c := clock.NewManual(day1)
	return New(append([]Option{WithClock(c)}, opts...)...), c
}

func TestNew_Defaults(t *testing.T) {
	a := New()
	assert.True(t, a.Balance().IsZero())
	assert.True(t, a.DailyWithdrawalLimit().Equal(dec("1000")))
	assert.Equal(t, 3, a.DailyDepositLimit())
	assert.Empty(t, a.Movements())
}

func TestNewWithBalance(t *testing.T) {
	a := NewWithBalance(dec("250.50"))
	assert.True(t, a.Balance().Equal(dec("250.50")))
	assert.Empty(t, a.Movements())
}

func TestDeposit_Positive(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("1500")))
	assert.True(t, a.Balance().Equal(dec("1500")))

	moves := a.Movements()
	require.Len(t, moves, 1)
	assert.Equal(t, model.KindDeposit, moves[0].Kind)
	assert.True(t, moves[0].Amount.Equal(dec("1500")))
	assert.Equal(t, model.DateOf(day1), moves[0].Date)
}

func TestDeposit_NegativeKeepsBalance(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("1500")))

	err := a.Deposit(dec("-1500"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, a.Balance().Equal(dec("1500")))
	assert.Len(t, a.Movements(), 1)
}

func TestNonPositiveAmounts(t *testing.T) {
	for _, amt := range []string{"0", "-0.01", "-500", "-1500"} {
		a, _ := newTestAccount()
		a.SetBalance(dec("5000"))

		assert.ErrorIs(t, a.Deposit(dec(amt)), ErrInvalidAmount, "deposit %s", amt)
		assert.ErrorIs(t, a.Withdraw(dec(amt)), ErrInvalidAmount, "withdraw %s", amt)
		assert.True(t, a.Balance().Equal(dec("5000")), "balance after %s", amt)
		assert.Empty(t, a.Movements(), "movements after %s", amt)
	}
}

func TestDeposit_UpToThreePerDay(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("1500")))
	require.NoError(t, a.Deposit(dec("456")))
	require.NoError(t, a.Deposit(dec("1900")))
	assert.True(t, a.Balance().Equal(dec("3856")))
	assert.Equal(t, 3, a.DepositsOn(day1))
}

func TestDeposit_FourthSameDayFails(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("1500")))
	require.NoError(t, a.Deposit(dec("456")))
	require.NoError(t, a.Deposit(dec("1900")))

	err := a.Deposit(dec("245"))
	assert.ErrorIs(t, err, ErrTooManyDeposits)
	assert.True(t, a.Balance().Equal(dec("3856")))
	assert.Len(t, a.Movements(), 3)
}

func TestDeposit_InvalidAmountCheckedBeforeCount(t *testing.T) {
	a, _ := newTestAccount()
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Deposit(dec("10")))
	}
	assert.ErrorIs(t, a.Deposit(dec("-1")), ErrInvalidAmount)
}

func TestDeposit_LimitResetsNextDay(t *testing.T) {
	a, c := newTestAccount()
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Deposit(dec("100")))
	}
	require.ErrorIs(t, a.Deposit(dec("100")), ErrTooManyDeposits)

	c.AdvanceDays(1)
	require.NoError(t, a.Deposit(dec("100")))
	assert.Equal(t, 3, a.DepositsOn(day1))
	assert.Equal(t, 1, a.DepositsOn(day1.AddDate(0, 0, 1)))
	assert.True(t, a.Balance().Equal(dec("400")))
}

func TestDeposit_LimitIgnoresTimeOfDay(t *testing.T) {
	a, c := newTestAccount()
	c.Set(time.Date(2025, 1, 15, 0, 0, 1, 0, time.UTC))
	require.NoError(t, a.Deposit(dec("1")))
	c.Set(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, a.Deposit(dec("1")))
	c.Set(time.Date(2025, 1, 15, 23, 59, 59, 0, time.UTC))
	require.NoError(t, a.Deposit(dec("1")))
	assert.ErrorIs(t, a.Deposit(dec("1")), ErrTooManyDeposits)
}

func TestDeposit_CustomLimit(t *testing.T) {
	a, _ := newTestAccount(WithDailyDepositLimit(1))
	require.NoError(t, a.Deposit(dec("1")))
	assert.ErrorIs(t, a.Deposit(dec("1")), ErrTooManyDeposits)
}

func TestWithdraw_MoreThanBalance(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("90"))

	err := a.Withdraw(dec("1001"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, a.Balance().Equal(dec("90")))
	assert.Empty(t, a.Movements())
}

func TestWithdraw_MoreThanDailyLimit(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("5000"))

	err := a.Withdraw(dec("1001"))
	assert.ErrorIs(t, err, ErrDailyWithdrawalLimitExceeded)
	assert.True(t, a.Balance().Equal(dec("5000")))
}

func TestWithdraw_ExactBalanceAndLimit(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("1000"))
	require.NoError(t, a.Withdraw(dec("1000")))
	assert.True(t, a.Balance().IsZero())
	assert.True(t, a.RemainingWithdrawal().IsZero())
}

func TestWithdraw_CumulativeLimit(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("5000"))
	require.NoError(t, a.Withdraw(dec("600")))
	require.NoError(t, a.Withdraw(dec("400")))

	assert.ErrorIs(t, a.Withdraw(dec("0.01")), ErrDailyWithdrawalLimitExceeded)
	assert.True(t, a.TotalWithdrawnOn(day1).Equal(dec("1000")))
	assert.True(t, a.Balance().Equal(dec("4000")))
}

func TestWithdraw_LimitResetsNextDay(t *testing.T) {
	a, c := newTestAccount()
	a.SetBalance(dec("5000"))
	require.NoError(t, a.Withdraw(dec("1000")))
	require.ErrorIs(t, a.Withdraw(dec("1")), ErrDailyWithdrawalLimitExceeded)

	c.AdvanceDays(1)
	require.NoError(t, a.Withdraw(dec("1000")))
	assert.True(t, a.Balance().Equal(dec("3000")))
	assert.True(t, a.TotalWithdrawnOn(day1).Equal(dec("1000")))
	assert.True(t, a.TotalWithdrawnOn(day1.AddDate(0, 0, 1)).Equal(dec("1000")))
}

func TestWithdraw_CheckOrder(t *testing.T) {
	// Balance 90 and limit 1000: a 1001 withdrawal breaks both balance and limit
	// rules, and the balance check wins.
	a, _ := newTestAccount()
	a.SetBalance(dec("90"))
	assert.ErrorIs(t, a.Withdraw(dec("1001")), ErrInsufficientBalance)

	// A negative amount reports InvalidAmount even with an empty account.
	b, _ := newTestAccount()
	assert.ErrorIs(t, b.Withdraw(dec("-500")), ErrInvalidAmount)
}

func TestWithdraw_CustomLimit(t *testing.T) {
	a, _ := newTestAccount(WithDailyWithdrawalLimit(dec("50")))
	a.SetBalance(dec("100"))
	require.NoError(t, a.Withdraw(dec("50")))
	assert.ErrorIs(t, a.Withdraw(dec("1")), ErrDailyWithdrawalLimitExceeded)
}

func TestTotalWithdrawnOn(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("500")))
	require.NoError(t, a.Withdraw(dec("100")))
	require.NoError(t, a.Withdraw(dec("100")))

	assert.True(t, a.TotalWithdrawnOn(day1).Equal(dec("200")))
	assert.True(t, a.TotalWithdrawnOn(day1).Equal(dec("200")), "query must be idempotent")
	assert.True(t, a.TotalWithdrawnOn(day1.AddDate(0, 0, -1)).IsZero())
	assert.True(t, a.Balance().Equal(dec("300")))
	assert.True(t, a.Balance().Equal(dec("300")))
}

func TestRemainingWithdrawal(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("5000"))
	assert.True(t, a.RemainingWithdrawal().Equal(dec("1000")))
	require.NoError(t, a.Withdraw(dec("250.25")))
	assert.True(t, a.RemainingWithdrawal().Equal(dec("749.75")))
}

func TestSetBalance_BypassesLog(t *testing.T) {
	a, _ := newTestAccount()
	require.NoError(t, a.Deposit(dec("100")))
	a.SetBalance(dec("-20"))

	assert.True(t, a.Balance().Equal(dec("-20")))
	assert.Len(t, a.Movements(), 1)

	// Accounting resumes from the new value.
	require.NoError(t, a.Deposit(dec("30")))
	assert.True(t, a.Balance().Equal(dec("10")))
}

func TestMovements_ChronologicalCopy(t *testing.T) {
	a, c := newTestAccount()
	require.NoError(t, a.Deposit(dec("500")))
	require.NoError(t, a.Withdraw(dec("100")))
	c.AdvanceDays(1)
	require.NoError(t, a.Deposit(dec("50")))

	moves := a.Movements()
	require.Len(t, moves, 3)
	assert.Equal(t, model.KindDeposit, moves[0].Kind)
	assert.Equal(t, model.KindWithdrawal, moves[1].Kind)
	assert.Equal(t, model.KindDeposit, moves[2].Kind)
	assert.True(t, moves[2].IsOn(day1.AddDate(0, 0, 1)))

	moves[0].Amount = dec("999999")
	assert.True(t, a.Movements()[0].Amount.Equal(dec("500")))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(OpDeposit, dec("500")))
	assert.ErrorIs(t, ValidateAmount(OpDeposit, dec("-500")), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(OpWithdraw, decimal.Zero), ErrInvalidAmount)
}

func TestRuleError(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("5000"))
	err := a.Withdraw(dec("1001"))

	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, OpWithdraw, re.Op)
	assert.True(t, re.Amount.Equal(dec("1001")))
	assert.ErrorIs(t, re.Reason, ErrDailyWithdrawalLimitExceeded)
	assert.Contains(t, err.Error(), "per day, remaining: 1000.00")
}

func TestRuleError_EveryRejection(t *testing.T) {
	a, _ := newTestAccount()
	rejections := []error{
		a.Withdraw(dec("5")),
		a.Deposit(dec("-1")),
		ValidateAmount(OpDeposit, decimal.Zero),
	}
	for i, err := range rejections {
		var re *RuleError
		require.True(t, errors.As(err, &re), "rejection %d", i)
		assert.NotEmpty(t, re.Description, "rejection %d", i)
	}
}

func TestWithClock_NilKeepsSystemClock(t *testing.T) {
	a := New(WithClock(nil))
	require.NotPanics(t, func() {
		require.NoError(t, a.Deposit(dec("10")))
	})
	assert.Len(t, a.Movements(), 1)
}

func TestErrorName(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{ErrInvalidAmount, "invalid-amount"},
		{ErrTooManyDeposits, "too-many-deposits"},
		{ErrInsufficientBalance, "insufficient-balance"},
		{ErrDailyWithdrawalLimitExceeded, "daily-withdrawal-limit-exceeded"},
		{errors.New("other"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, ErrorName(tt.err))
		if tt.name != "" {
			got, ok := ErrorByName(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.err, got)
		}
	}

	_, ok := ErrorByName("nope")
	assert.False(t, ok)
}

func TestConcurrentWithdrawals(t *testing.T) {
	a, _ := newTestAccount()
	a.SetBalance(dec("5000"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Withdraw(dec("100")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.True(t, a.Balance().Equal(dec("4000")))
	assert.True(t, a.TotalWithdrawnOn(day1).Equal(dec("1000")))
}

func TestConcurrentDeposits(t *testing.T) {
	a, _ := newTestAccount()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Deposit(dec("10"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, a.DepositsOn(day1))
	assert.True(t, a.Balance().Equal(dec("30")))
}
