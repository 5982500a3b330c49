package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monedero-dev/monedero/internal/account"
	"github.com/monedero-dev/monedero/internal/clock"
	"github.com/monedero-dev/monedero/internal/config"
	"github.com/monedero-dev/monedero/internal/model"
	"github.com/monedero-dev/monedero/internal/session"
	"github.com/monedero-dev/monedero/internal/statement"
)

type runOptions struct {
	configPath     string
	start          string
	initialBalance string
	statementPath  string
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script of operations against a fresh account (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicitConfig := cmd.Flags().Changed("config")
			return a.runScript(cmd, args[0], opts, explicitConfig)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", config.FileName, "config file")
	cmd.Flags().StringVar(&opts.start, "start", "", "simulated start date (YYYY-MM-DD), overrides config")
	cmd.Flags().StringVar(&opts.initialBalance, "initial-balance", "", "opening balance, overrides config")
	cmd.Flags().StringVar(&opts.statementPath, "statement", "", "write the movement log as CSV to this file")

	return cmd
}

func (a *app) runScript(cmd *cobra.Command, scriptPath string, opts runOptions, explicitConfig bool) error {
	cfg, err := a.loadConfig(opts.configPath, explicitConfig)
	if err != nil {
		return err
	}
	if opts.initialBalance != "" {
		d, err := decimal.NewFromString(opts.initialBalance)
		if err != nil {
			return fmt.Errorf("parsing --initial-balance %q: %w", opts.initialBalance, err)
		}
		cfg.Account.InitialBalance = d
	}
	if opts.start != "" {
		cfg.Clock.Start = opts.start
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	startAt, err := startTime(cfg)
	if err != nil {
		return err
	}
	clk := clock.NewManual(startAt)
	acct := newAccount(cfg, clk)

	ops, err := readScript(cmd.InOrStdin(), scriptPath)
	if err != nil {
		return err
	}

	logger := a.logger.With(zap.String("script", scriptPath))
	logger.Debug("starting session",
		zap.String("start", startAt.Format(model.DateFormat)),
		zap.String("initial_balance", cfg.Account.InitialBalance.StringFixed(2)),
		zap.String("daily_withdrawal", cfg.Limits.DailyWithdrawal.StringFixed(2)),
		zap.Int("daily_deposits", cfg.Limits.DailyDeposits),
		zap.Int("ops", len(ops)))

	out := cmd.OutOrStdout()
	runner := session.NewRunner(acct, clk, out, logger)
	report, runErr := runner.Run(ops)

	if opts.statementPath != "" {
		if err := writeStatement(opts.statementPath, acct.Movements()); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(out, "%d accepted, %d rejected, balance %s\n",
		report.Accepted, report.Rejected, acct.Balance().StringFixed(2))
	return nil
}

func (a *app) loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		a.logger.Debug("no config file, using defaults", zap.String("path", path))
		cfg = config.Default()
	}
	if err := config.ApplyEnv(cfg, a.getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAccount(cfg *config.Config, clk clock.Clock) *account.Account {
	return account.NewWithBalance(cfg.Account.InitialBalance,
		account.WithClock(clk),
		account.WithDailyWithdrawalLimit(cfg.Limits.DailyWithdrawal),
		account.WithDailyDepositLimit(cfg.Limits.DailyDeposits),
	)
}

// startTime is the configured start date, or now in the configured location.
func startTime(cfg *config.Config) (time.Time, error) {
	start, err := cfg.StartDate()
	if err != nil {
		return time.Time{}, err
	}
	if !start.IsZero() {
		return start, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}

func readScript(stdin io.Reader, path string) ([]session.Op, error) {
	if path == "-" {
		ops, err := session.Parse(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return ops, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()

	ops, err := session.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return ops, nil
}

func writeStatement(path string, movements []model.Movement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating statement: %w", err)
	}
	defer f.Close()

	if err := statement.WriteMovements(f, movements); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}
	return f.Close()
}
