package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vatbridge-dev/vatbridge/internal/model"
)

func newObligationsCommand(configPath *string) *cobra.Command {
	var open bool
	var start, end string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "obligations",
		Short: "Show VAT filing obligations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			svc := app.remoteService()

			var obs []model.Obligation
			if open {
				obs, err = svc.OpenObligations(cmd.Context())
			} else {
				from, perr := parseOptionalDateFlag("start", start)
				if perr != nil {
					return perr
				}
				to, perr := parseOptionalDateFlag("end", end)
				if perr != nil {
					return perr
				}
				obs, err = svc.Obligations(cmd.Context(), from, to)
			}
			if err != nil {
				return err
			}

			if len(obs) == 0 {
				fmt.Println("No obligations matched.")
				return nil
			}
			if asJSON {
				return printObligationsJSON(obs)
			}
			printObligations(obs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "only obligations awaiting a return")
	cmd.Flags().StringVar(&start, "start", "", "start of range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end of range (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print JSON")

	return cmd
}

func printObligations(obs []model.Obligation) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tDUE\tRECEIVED\tSTATUS")
	for _, o := range obs {
		received := ""
		if !o.Received.IsZero() {
			received = o.Received.Format(dateFormat)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Start.Format(dateFormat), o.End.Format(dateFormat),
			o.Due.Format(dateFormat), received, o.Status)
	}
	tw.Flush()
}

func printObligationsJSON(obs []model.Obligation) error {
	type row struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Due      string `json:"due"`
		Received string `json:"received,omitempty"`
		Status   string `json:"status"`
	}
	rows := make([]row, 0, len(obs))
	for _, o := range obs {
		r := row{
			Start:  o.Start.Format(dateFormat),
			End:    o.End.Format(dateFormat),
			Due:    o.Due.Format(dateFormat),
			Status: string(o.Status),
		}
		if !o.Received.IsZero() {
			r.Received = o.Received.Format(dateFormat)
		}
		rows = append(rows, r)
	}
	data, err := json.MarshalIndent(rows, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
