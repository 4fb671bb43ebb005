package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

func newTable(w io.Writer, header string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)

	return tw
}

func printBooks(w io.Writer, books []library.Book) error {
	tw := newTable(w, "ISBN\tTITLE\tAUTHOR\tPAGES\tGENRE\tAVAILABLE")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%t\n", b.ISBN, b.Title, b.Author, b.Pages, b.Genre, b.Available)
	}

	return tw.Flush()
}

func printCustomers(w io.Writer, customers []library.Customer) error {
	tw := newTable(w, "ID\tNAME\tEMAIL\tPHONE")
	for _, c := range customers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Phone)
	}

	return tw.Flush()
}

func printLoans(w io.Writer, loans []library.Loan) error {
	tw := newTable(w, "LOAN\tISBN\tCUSTOMER\tISSUED\tDUE\tRETURNED")
	for _, l := range loans {
		returned := "-"
		if l.ReturnedAt != nil {
			returned = l.ReturnedAt.Format(dateLayout)
		} else if l.Returned {
			returned = "yes"
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			l.ID, l.ISBN, l.CustomerID, l.IssueDate.Format(dateLayout), l.DueDate.Format(dateLayout), returned)
	}

	return tw.Flush()
}
