package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// defaultRange returns the trailing year, the range the original tool
// searches when none is given.
func defaultRange() (time.Time, time.Time) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	return now.AddDate(0, 0, -356), now
}

func rangeFlags(start, end string) (time.Time, time.Time, error) {
	from, to := defaultRange()
	if start != "" {
		t, err := parseDateFlag("start", start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if end != "" {
		t, err := parseDateFlag("end", end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func newLiabilitiesCommand(configPath *string) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "liabilities",
		Short: "Show VAT liabilities in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := rangeFlags(start, end)
			if err != nil {
				return err
			}

			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}

			liabilities, err := app.remoteService().Liabilities(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PERIOD END\tTYPE\tAMOUNT\tOUTSTANDING\tDUE")
			for _, l := range liabilities {
				typ := l.Type
				if len(typ) > 20 {
					typ = typ[:20]
				}
				due := ""
				if !l.Due.IsZero() {
					due = l.Due.Format(dateFormat)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					l.End.Format(dateFormat), typ,
					l.Original.StringFixed(2), l.Outstanding.StringFixed(2), due)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start of range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end of range (YYYY-MM-DD)")

	return cmd
}

func newPaymentsCommand(configPath *string) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Show VAT payments in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := rangeFlags(start, end)
			if err != nil {
				return err
			}

			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}

			payments, err := app.remoteService().Payments(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AMOUNT\tRECEIVED")
			for _, p := range payments {
				fmt.Fprintf(tw, "%s\t%s\n",
					p.Amount.StringFixed(2), p.Received.Format(dateFormat))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start of range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end of range (YYYY-MM-DD)")

	return cmd
}

func newFraudTestCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fraud-test",
		Short: "Validate the fraud prevention headers against the sandbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			feedback, err := app.client.TestFraudHeaders(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(string(feedback))
			return nil
		},
	}
}
