package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vatbridge-dev/vatbridge/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "vatbridge",
		Short:   "Reconcile a GnuCash ledger with the HMRC VAT API",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vatbridge.yaml", "configuration file")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAuthenticateCommand(&configPath))
	rootCmd.AddCommand(newObligationsCommand(&configPath))
	rootCmd.AddCommand(newAccountDataCommand(&configPath))
	rootCmd.AddCommand(newReturnCommand(&configPath))
	rootCmd.AddCommand(newSubmitCommand(&configPath))
	rootCmd.AddCommand(newLiabilitiesCommand(&configPath))
	rootCmd.AddCommand(newPaymentsCommand(&configPath))
	rootCmd.AddCommand(newFraudTestCommand(&configPath))

	return rootCmd
}
