// cmd/libradesk/drill.go
package main

import (
	"errors"

	"github.com/spf13/cobra"

	"libradesk/internal/chaos"
)

var errHypothesisViolated = errors.New("hypothesis violated")

func newDrillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Run chaos experiments against a running server",
	}

	var (
		book    string
		members int
		stock   int
	)
	race := &cobra.Command{
		Use:   "borrow-race",
		Short: "Borrow one title from many members at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := a.client()
			if err := c.Ping(ctx); err != nil {
				return err
			}

			names, err := chaos.PrepareBorrowRace(ctx, c, book, stock, members)
			if err != nil {
				return err
			}
			engine := chaos.NewEngine(a.logger)
			engine.RegisterExperiments(c, book, names)
			exp, _ := engine.Lookup(chaos.BorrowRaceName)

			result, err := engine.Run(ctx, exp)
			if result != nil {
				chaos.Print(a.stdout, result)
			}
			if err != nil {
				return err
			}
			if !result.HypothesisHeld {
				return errHypothesisViolated
			}
			return nil
		},
	}
	race.Flags().StringVar(&book, "book", "Chaos Drill Copy", "title to race for")
	race.Flags().IntVar(&members, "members", 10, "number of concurrent borrowers")
	race.Flags().IntVar(&stock, "stock", 2, "copies to create when the title is new")

	cmd.AddCommand(race)
	return cmd
}
