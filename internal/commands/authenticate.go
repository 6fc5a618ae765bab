package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vatbridge-dev/vatbridge/internal/auth"
)

func newAuthenticateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "authenticate",
		Short: "Run the OAuth2 grant flow and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}

			fmt.Println("Please visit the following URL and authenticate:")
			fmt.Println(app.tokens.AuthorizeURL())

			collector := &auth.Collector{}
			code, err := collector.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("collecting authorization code: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Got one-time code.")

			if err := app.tokens.Exchange(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Got authentication key, wrote %s.\n", app.cfg.Token.File)
			return nil
		},
	}
}
