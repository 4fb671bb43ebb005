package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) finesCmd() *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "fines <customer-id>",
		Short: "Show the outstanding fines of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCustomerID(args[0])
			if err != nil {
				return err
			}

			day, err := parseDay(today)
			if err != nil {
				return err
			}

			statement, err := c.lib.Coordinator.CustomerFines(id, day)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "ISBN\tDUE\tOVERDUE DAYS\tFINE")
			for _, line := range statement.Loans {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n",
					line.Loan.ISBN, line.Loan.DueDate.Format(dateLayout), line.OverdueDays, line.Fine)
			}
			fmt.Fprintf(tw, "TOTAL\t\t\t%d\n", statement.Total)

			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "reference day as YYYY-MM-DD (default today)")

	return cmd
}
