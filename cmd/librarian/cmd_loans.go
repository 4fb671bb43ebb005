package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

func (c *cli) loanCmd() *cobra.Command {
	var (
		byISBN bool
		today  string
	)

	returnCmd := &cobra.Command{
		Use:   "return <isbn> [customer-id]",
		Short: "Return a book borrowed by a customer",
		Long: `Return a book. With a customer id only that customer's active loan is closed.
With --by-isbn the customer id is omitted and whoever holds the book returns it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				loan library.Loan
				err  error
			)

			switch {
			case byISBN && len(args) == 1:
				loan, err = c.lib.Coordinator.ReturnBookByISBN(cmd.Context(), args[0])
			case !byISBN && len(args) == 2:
				id, parseErr := parseCustomerID(args[1])
				if parseErr != nil {
					return parseErr
				}

				loan, err = c.lib.Coordinator.ReturnBook(cmd.Context(), args[0], id)
			default:
				return fmt.Errorf("%w: pass either a customer id or --by-isbn", library.ErrInvalidInput)
			}

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Book %s returned by customer %d.\n", loan.ISBN, loan.CustomerID)

			return nil
		},
	}
	returnCmd.Flags().BoolVar(&byISBN, "by-isbn", false, "close the active loan of the book, whoever holds it")

	overdueCmd := &cobra.Command{
		Use:   "overdue",
		Short: "List active loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDay(today)
			if err != nil {
				return err
			}

			return printLoans(cmd.OutOrStdout(), slices.Collect(c.lib.Ledger.OverdueLoans(day)))
		},
	}
	overdueCmd.Flags().StringVar(&today, "today", "", "reference day as YYYY-MM-DD (default today)")

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Issue and return books, inspect the loan ledger",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "issue <isbn> <customer-id>",
			Short: "Lend an available book to a registered customer",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseCustomerID(args[1])
				if err != nil {
					return err
				}

				loan, err := c.lib.Coordinator.IssueBook(cmd.Context(), args[0], id)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Book %s issued to customer %d, due %s.\n",
					loan.ISBN, loan.CustomerID, loan.DueDate.Format(dateLayout))

				return nil
			},
		},
		returnCmd,
		&cobra.Command{
			Use:   "history <customer-id>",
			Short: "List every loan of a customer in issue order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseCustomerID(args[0])
				if err != nil {
					return err
				}

				return printLoans(cmd.OutOrStdout(), slices.Collect(c.lib.Ledger.HistoryFor(id)))
			},
		},
		overdueCmd,
	)

	return cmd
}
