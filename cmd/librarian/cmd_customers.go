package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

func (c *cli) customerCmd() *cobra.Command {
	var email, phone string

	register := &cobra.Command{
		Use:   "register <id> <name>",
		Short: "Register a customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCustomerID(args[0])
			if err != nil {
				return err
			}

			customer, err := library.BuildCustomer(id, args[1], email, phone)
			if err != nil {
				return err
			}

			if err = c.lib.Customers.Register(cmd.Context(), customer); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Customer %d registered.\n", id)

			return nil
		},
	}
	register.Flags().StringVar(&email, "email", "", "e-mail address")
	register.Flags().StringVar(&phone, "phone", "", "phone number")

	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage registered customers",
	}

	cmd.AddCommand(
		register,
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one customer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseCustomerID(args[0])
				if err != nil {
					return err
				}

				customer, err := c.lib.Customers.Get(id)
				if err != nil {
					return err
				}

				return printCustomers(cmd.OutOrStdout(), []library.Customer{customer})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all customers ordered by id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printCustomers(cmd.OutOrStdout(), c.lib.Customers.All())
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Remove a customer without active loans",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseCustomerID(args[0])
				if err != nil {
					return err
				}

				if err = c.lib.Coordinator.DeleteCustomer(cmd.Context(), id); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Customer %d deleted.\n", id)

				return nil
			},
		},
	)

	return cmd
}
