package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vatbridge-dev/vatbridge/internal/config"
)

func newInitCommand() *cobra.Command {
	var name string
	var vrn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a template vatbridge.yaml",
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
			return runInit(absDir, name, vrn)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&vrn, "vrn", "", "VAT registration number (required)")
	_ = cmd.MarkFlagRequired("vrn")

	return cmd
}

func runInit(dir, name, vrn string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	path := filepath.Join(dir, "vatbridge.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default(name, vrn)
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote %s.\n", path)
	fmt.Println("Fill in application.client_id, application.client_secret and the")
	fmt.Println("identity device fields before talking to HMRC.")
	return nil
}
