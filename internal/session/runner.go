package session

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monedero-dev/monedero/internal/account"
	"github.com/monedero-dev/monedero/internal/clock"
	"github.com/monedero-dev/monedero/internal/model"
)

// Result is the outcome of one executed op.
type Result struct {
	Op     Op
	Output string
	Err    error // rule rejection; nil when accepted
}

// Report summarizes a run.
type Report struct {
	Results  []Result
	Accepted int
	Rejected int
}

// ScriptError is a problem with the script itself, as opposed to a rule rejection.
type ScriptError struct {
	Line int
	Msg  string
}

func (e ScriptError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ErrExpectationFailed is wrapped by the error Run returns when an expect op does not hold.
var ErrExpectationFailed = errors.New("expectation failed")

// outcome is what a handler hands back for an op that ran.
type outcome struct {
	output   string
	rejected error
}

type opFunc func(op Op) (outcome, error)

type handler struct {
	minArgs int
	maxArgs int
	fn      opFunc
}

// Runner executes ops against an account whose clock it controls.
type Runner struct {
	account  *account.Account
	clock    *clock.Manual
	out      io.Writer
	logger   *zap.Logger
	handlers map[string]handler
	last     *Result
}

// NewRunner creates a Runner. The account must have been built with clk as its clock.
func NewRunner(acct *account.Account, clk *clock.Manual, out io.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		account:  acct,
		clock:    clk,
		out:      out,
		logger:   logger,
		handlers: make(map[string]handler),
	}
	r.register("deposit", 1, 1, r.deposit)
	r.register("withdraw", 1, 1, r.withdraw)
	r.register("set-balance", 1, 1, r.setBalance)
	r.register("balance", 0, 0, r.balance)
	r.register("withdrawn", 0, 1, r.withdrawn)
	r.register("advance", 0, 1, r.advance)
	r.register("date", 1, 1, r.date)
	r.register("expect", 1, 1, r.expect)
	return r
}

func (r *Runner) register(name string, minArgs, maxArgs int, fn opFunc) {
	if _, ok := r.handlers[name]; ok {
		panic("duplicate op: " + name)
	}
	r.handlers[name] = handler{minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

// OpNames returns the supported op names, sorted.
func (r *Runner) OpNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every op name and argument count without executing anything.
func (r *Runner) Validate(ops []Op) error {
	var errs []error
	for _, op := range ops {
		h, ok := r.handlers[op.Name]
		if !ok {
			errs = append(errs, ScriptError{Line: op.Line, Msg: fmt.Sprintf("unknown op %q", op.Name)})
			continue
		}
		if n := len(op.Args); n < h.minArgs || n > h.maxArgs {
			errs = append(errs, ScriptError{Line: op.Line, Msg: fmt.Sprintf("%s takes %s, got %d", op.Name, arity(h), n)})
		}
	}
	return errors.Join(errs...)
}

// Run validates ops, then executes them in order. Rule rejections are recorded
// in the report and do not stop the run; script errors and failed expectations do.
func (r *Runner) Run(ops []Op) (*Report, error) {
	if err := r.Validate(ops); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, op := range ops {
		oc, err := r.handlers[op.Name].fn(op)
		if err != nil {
			return report, err
		}
		res := Result{Op: op, Output: oc.output, Err: oc.rejected}
		report.Results = append(report.Results, res)
		if op.Name != "expect" {
			r.last = &res
		}

		if isMovement(op) {
			if res.Err != nil {
				report.Rejected++
			} else {
				report.Accepted++
			}
		}
		if res.Output != "" {
			if _, err := fmt.Fprintln(r.out, res.Output); err != nil {
				return report, fmt.Errorf("writing output: %w", err)
			}
		}
	}
	return report, nil
}

func (r *Runner) deposit(op Op) (outcome, error) {
	amount, err := parseAmount(op, op.Args[0])
	if err != nil {
		return outcome{}, err
	}
	return r.movement(op, amount, r.account.Deposit(amount))
}

func (r *Runner) withdraw(op Op) (outcome, error) {
	amount, err := parseAmount(op, op.Args[0])
	if err != nil {
		return outcome{}, err
	}
	return r.movement(op, amount, r.account.Withdraw(amount))
}

func (r *Runner) movement(op Op, amount decimal.Decimal, ruleErr error) (outcome, error) {
	balance := r.account.Balance()
	fields := []zap.Field{
		zap.Int("line", op.Line),
		zap.String("op", op.Name),
		zap.String("amount", amount.String()),
		zap.String("date", r.today().Format(model.DateFormat)),
		zap.String("balance", balance.StringFixed(2)),
	}
	if ruleErr != nil {
		if account.ErrorName(ruleErr) == "" {
			return outcome{}, fmt.Errorf("line %d: %s: %w", op.Line, op.Name, ruleErr)
		}
		r.logger.Info("operation rejected", append(fields, zap.String("reason", account.ErrorName(ruleErr)), zap.Error(ruleErr))...)
		return outcome{
			output:   fmt.Sprintf("%s: rejected [%s] %s", op, account.ErrorName(ruleErr), describe(ruleErr)),
			rejected: ruleErr,
		}, nil
	}
	r.logger.Debug("operation accepted", fields...)
	return outcome{output: fmt.Sprintf("%s: ok, balance %s", op, balance.StringFixed(2))}, nil
}

func (r *Runner) setBalance(op Op) (outcome, error) {
	amount, err := parseAmount(op, op.Args[0])
	if err != nil {
		return outcome{}, err
	}
	r.account.SetBalance(amount)
	r.logger.Debug("balance overridden", zap.Int("line", op.Line), zap.String("balance", amount.StringFixed(2)))
	return outcome{output: fmt.Sprintf("%s: balance %s", op, amount.StringFixed(2))}, nil
}

func (r *Runner) balance(op Op) (outcome, error) {
	return outcome{output: "balance " + r.account.Balance().StringFixed(2)}, nil
}

func (r *Runner) withdrawn(op Op) (outcome, error) {
	day := r.today()
	if len(op.Args) == 1 {
		d, err := r.parseDate(op, op.Args[0])
		if err != nil {
			return outcome{}, err
		}
		day = d
	}
	total := r.account.TotalWithdrawnOn(day)
	return outcome{output: fmt.Sprintf("withdrawn %s %s", day.Format(model.DateFormat), total.StringFixed(2))}, nil
}

func (r *Runner) advance(op Op) (outcome, error) {
	days := 1
	if len(op.Args) == 1 {
		n, err := strconv.Atoi(op.Args[0])
		if err != nil || n < 0 {
			return outcome{}, ScriptError{Line: op.Line, Msg: fmt.Sprintf("invalid day count %q", op.Args[0])}
		}
		days = n
	}
	r.clock.AdvanceDays(days)
	return outcome{output: "date " + r.today().Format(model.DateFormat)}, nil
}

func (r *Runner) date(op Op) (outcome, error) {
	d, err := r.parseDate(op, op.Args[0])
	if err != nil {
		return outcome{}, err
	}
	r.clock.Set(d)
	return outcome{output: "date " + d.Format(model.DateFormat)}, nil
}

func (r *Runner) expect(op Op) (outcome, error) {
	if r.last == nil {
		return outcome{}, ScriptError{Line: op.Line, Msg: "expect has no previous op"}
	}
	want := op.Args[0]
	got := "ok"
	if r.last.Err != nil {
		got = account.ErrorName(r.last.Err)
	}
	if want != "ok" {
		if _, known := account.ErrorByName(want); !known {
			return outcome{}, ScriptError{Line: op.Line, Msg: fmt.Sprintf("unknown outcome %q", want)}
		}
	}
	if got != want {
		r.logger.Warn("expectation failed",
			zap.Int("line", op.Line), zap.Int("op_line", r.last.Op.Line),
			zap.String("want", want), zap.String("got", got))
		return outcome{}, fmt.Errorf("line %d: %s: want %s, got %s: %w", op.Line, r.last.Op, want, got, ErrExpectationFailed)
	}
	return outcome{}, nil
}

func (r *Runner) today() time.Time {
	return model.DateOf(r.clock.Now())
}

func (r *Runner) parseDate(op Op, s string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateFormat, s, r.clock.Now().Location())
	if err != nil {
		return time.Time{}, ScriptError{Line: op.Line, Msg: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s)}
	}
	return d, nil
}

func parseAmount(op Op, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ScriptError{Line: op.Line, Msg: fmt.Sprintf("invalid amount %q", s)}
	}
	return d, nil
}

func isMovement(op Op) bool {
	return op.Name == "deposit" || op.Name == "withdraw"
}

// describe returns the human part of a rule error.
func describe(err error) string {
	var re *account.RuleError
	if errors.As(err, &re) {
		return re.Description
	}
	return err.Error()
}

func arity(h handler) string {
	switch {
	case h.minArgs == h.maxArgs && h.minArgs == 1:
		return "1 argument"
	case h.minArgs == h.maxArgs:
		return fmt.Sprintf("%d arguments", h.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", h.minArgs, h.maxArgs)
	}
}
