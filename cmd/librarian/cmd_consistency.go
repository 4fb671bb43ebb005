package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/coordinator"
)

func (c *cli) consistencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consistency",
		Short: "Compare book availability with the loan ledger",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report books whose availability disagrees with the ledger",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				findings, err := c.lib.Coordinator.CheckConsistency()
				if len(findings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog and ledger agree.")
					return nil
				}

				if printErr := printFindings(cmd.OutOrStdout(), findings); printErr != nil {
					return printErr
				}

				return err
			},
		},
		&cobra.Command{
			Use:   "repair",
			Short: "Set availability from the ledger where that is unambiguous",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				repaired, err := c.lib.Coordinator.RepairConsistency(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d books repaired.\n", len(repaired))

				return printFindings(cmd.OutOrStdout(), repaired)
			},
		},
	)

	return cmd
}

func printFindings(w io.Writer, findings []coordinator.Inconsistency) error {
	if len(findings) == 0 {
		return nil
	}

	tw := newTable(w, "ISBN\tKIND\tACTIVE LOANS\tREPAIRABLE")
	for _, f := range findings {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", f.ISBN, f.Kind, f.ActiveLoans, f.Repairable())
	}

	return tw.Flush()
}
