package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vatbridge-dev/vatbridge/internal/model"
	"github.com/vatbridge-dev/vatbridge/internal/reconcile"
)

func newAccountDataCommand(configPath *string) *cobra.Command {
	var dueFlag string
	var detail bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "account-data",
		Short: "Show the ledger figures behind an open obligation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := parseDateFlag("due", dueFlag)
			if err != nil {
				return err
			}

			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			svc, err := app.service()
			if err != nil {
				return err
			}

			comp, err := svc.ComputeDue(cmd.Context(), due, detail)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := reconcile.MarshalComputation(comp)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Account data for period %s to %s (due %s)\n\n",
				comp.Start.Format(dateFormat), comp.End.Format(dateFormat),
				comp.DueDate.Format(dateFormat))
			for _, b := range model.Boxes {
				res := comp.Boxes[b]
				fmt.Printf("    %-30s: %15s\n", b.Description(), res.Total.StringFixed(2))
				if !detail || len(res.Splits) == 0 {
					continue
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, s := range res.Splits {
					desc := s.Description
					if len(desc) > 60 {
						desc = desc[:60]
					}
					fmt.Fprintf(tw, "        %s\t%15s\t%s\n",
						s.Date.Format(dateFormat), s.Amount.StringFixed(2), desc)
				}
				tw.Flush()
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dueFlag, "due", "", "obligation due date (YYYY-MM-DD, required)")
	_ = cmd.MarkFlagRequired("due")
	cmd.Flags().BoolVar(&detail, "detail", false, "show contributing transactions")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print JSON")

	return cmd
}

func newReturnCommand(configPath *string) *cobra.Command {
	var dueFlag, start, end string

	cmd := &cobra.Command{
		Use:   "return",
		Short: "Show the return already filed for a due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := parseDateFlag("due", dueFlag)
			if err != nil {
				return err
			}
			from, err := parseOptionalDateFlag("start", start)
			if err != nil {
				return err
			}
			to, err := parseOptionalDateFlag("end", end)
			if err != nil {
				return err
			}

			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}

			rtn, err := app.remoteService().FiledReturn(cmd.Context(), due, from, to)
			if err != nil {
				return err
			}
			printReturn(rtn)
			return nil
		},
	}

	cmd.Flags().StringVar(&dueFlag, "due", "", "obligation due date (YYYY-MM-DD, required)")
	_ = cmd.MarkFlagRequired("due")
	cmd.Flags().StringVar(&start, "start", "", "start of obligation search range")
	cmd.Flags().StringVar(&end, "end", "", "end of obligation search range")

	return cmd
}

const submissionDeclaration = `
When you submit this VAT information you are making a legal
declaration that the information is true and complete. A false
declaration can result in prosecution.
`

func newSubmitCommand(configPath *string) *cobra.Command {
	var dueFlag string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Compute and file the return for a due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := parseDateFlag("due", dueFlag)
			if err != nil {
				return err
			}

			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			svc, err := app.service()
			if err != nil {
				return err
			}

			// Show what will be filed before asking for the declaration.
			comp, err := svc.ComputeDue(cmd.Context(), due, false)
			if err != nil {
				return err
			}
			for _, b := range model.Boxes {
				fmt.Printf("%-30s: %15s\n", b.Description(), comp.Total(b).StringFixed(2))
			}

			if !assumeYes {
				if err := confirmSubmission(); err != nil {
					return err
				}
			}

			rtn, ack, err := svc.Submit(cmd.Context(), due)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println("Submitted.")
			fmt.Printf("%-30s: %s\n", "Period key", rtn.PeriodKey)
			if !ack.ProcessingDate.IsZero() {
				fmt.Printf("%-30s: %s\n", "Processing date", ack.ProcessingDate.Format("2006-01-02 15:04:05"))
			}
			if ack.PaymentIndicator != "" {
				fmt.Printf("%-30s: %s\n", "Payment indicator", ack.PaymentIndicator)
			}
			if ack.FormBundleNumber != "" {
				fmt.Printf("%-30s: %s\n", "Form bundle", ack.FormBundleNumber)
			}
			if ack.ChargeRefNumber != "" {
				fmt.Printf("%-30s: %s\n", "Charge ref", ack.ChargeRefNumber)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dueFlag, "due", "", "obligation due date (YYYY-MM-DD, required)")
	_ = cmd.MarkFlagRequired("due")
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "skip the interactive confirmation")

	return cmd
}

func confirmSubmission() error {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(submissionDeclaration + "\n")
		fmt.Print("OK to submit? (yes/no) ")
		reply, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		switch strings.TrimSpace(reply) {
		case "yes":
			return nil
		case "no":
			return fmt.Errorf("submission was not accepted")
		}
		fmt.Println("Answer not recognised.")
	}
}

func printReturn(rtn model.Return) {
	if rtn.PeriodKey != "" {
		fmt.Printf("%-30s: %s\n", "Period key", rtn.PeriodKey)
	}
	for _, b := range model.Boxes {
		fmt.Printf("%-30s: %15s\n", b.Description(), rtn.Value(b).StringFixed(2))
	}
}
