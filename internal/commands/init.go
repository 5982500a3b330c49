package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/monedero-dev/monedero/internal/config"
)

type initOptions struct {
	force           bool
	dailyWithdrawal string
	dailyDeposits   int
	start           string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a monedero.yaml with the default limits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config")
	cmd.Flags().StringVar(&opts.dailyWithdrawal, "daily-withdrawal", "1000", "maximum total withdrawn per day")
	cmd.Flags().IntVar(&opts.dailyDeposits, "daily-deposits", 3, "maximum number of deposits per day")
	cmd.Flags().StringVar(&opts.start, "start", "", "simulated start date (YYYY-MM-DD)")

	return cmd
}

func runInit(out io.Writer, dir string, opts initOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.FileName)
	if !opts.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	limit, err := decimal.NewFromString(opts.dailyWithdrawal)
	if err != nil {
		return fmt.Errorf("parsing --daily-withdrawal %q: %w", opts.dailyWithdrawal, err)
	}

	cfg := config.Default()
	cfg.Limits.DailyWithdrawal = limit
	cfg.Limits.DailyDeposits = opts.dailyDeposits
	cfg.Clock.Start = opts.start
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
