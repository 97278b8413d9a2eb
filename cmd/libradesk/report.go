// cmd/libradesk/report.go
package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"libradesk/internal/library"
)

const dateLayout = "2006-01-02"

func newReportCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print circulation reports from a running server",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the raw [title, member] pairs")

	var date string
	borrowed := &cobra.Command{
		Use:   "borrowed",
		Short: "Loans still out after the given day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now()
			if date != "" {
				var err error
				if asOf, err = time.Parse(dateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
			}
			loans, err := a.client().CurrentlyBorrowed(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			return a.printLoans(loans, asJSON)
		},
	}
	borrowed.Flags().StringVar(&date, "date", "", "report day as YYYY-MM-DD (default today)")

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Open loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := a.client().Overdue(cmd.Context())
			if err != nil {
				return err
			}
			return a.printLoans(loans, asJSON)
		},
	}

	cmd.AddCommand(borrowed, overdue)
	return cmd
}

func (a *app) printLoans(loans []library.Loan, asJSON bool) error {
	if asJSON {
		if loans == nil {
			loans = []library.Loan{}
		}
		return jsoniter.NewEncoder(a.stdout).Encode(loans)
	}
	if len(loans) == 0 {
		a.printf("No loans.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tMEMBER")
	for _, loan := range loans {
		fmt.Fprintf(tw, "%s\t%s\n", loan.Title, loan.MemberName)
	}
	return tw.Flush()
}
