package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monedero-dev/monedero/internal/buildinfo"
	"github.com/monedero-dev/monedero/internal/config"
	"github.com/monedero-dev/monedero/internal/logging"
)

// app carries state shared by all subcommands.
type app struct {
	verbose bool
	logger  *zap.Logger
	getenv  func(string) string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{getenv: os.Getenv})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "monedero",
		Short:   "Single account with daily deposit and withdrawal limits",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			logger, err := logging.New(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every operation to stderr")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRunCommand(a))

	return rootCmd
}
