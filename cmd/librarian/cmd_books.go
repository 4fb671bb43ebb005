package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

func (c *cli) bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the book catalog",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <isbn> <title> <author> <pages> <genre>",
			Short: "Add a book to the catalog",
			Args:  cobra.ExactArgs(5),
			RunE:  c.runBookAdd,
		},
		&cobra.Command{
			Use:   "get <isbn>",
			Short: "Show one book",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runBookGet,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all books ordered by ISBN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printBooks(cmd.OutOrStdout(), c.lib.Catalog.All())
			},
		},
		&cobra.Command{
			Use:   "delete <isbn>",
			Short: "Remove a book that is not on loan",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.lib.Coordinator.DeleteBook(cmd.Context(), args[0]); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Book %s deleted.\n", args[0])

				return nil
			},
		},
		&cobra.Command{
			Use:   "lookup <isbn>",
			Short: "Look a book up in the bibliographic service without cataloging it",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runBookLookup,
		},
		&cobra.Command{
			Use:   "add-from-lookup <isbn>",
			Short: "Catalog a book with the data of the bibliographic service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := c.lib.Coordinator.AddBookFromLookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				return printBooks(cmd.OutOrStdout(), []library.Book{book})
			},
		},
	)

	return cmd
}

func (c *cli) runBookAdd(cmd *cobra.Command, args []string) error {
	pages, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("%w: pages %q is not a number", library.ErrInvalidInput, args[3])
	}

	book, err := library.BuildBook(args[0], args[1], args[2], pages, args[4])
	if err != nil {
		return err
	}

	if err = c.lib.Catalog.Insert(cmd.Context(), book); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Book %s added.\n", book.ISBN)

	return nil
}

func (c *cli) runBookGet(cmd *cobra.Command, args []string) error {
	isbn, err := library.NormalizeISBN(args[0])
	if err != nil {
		return err
	}

	book, err := c.lib.Catalog.Get(isbn)
	if err != nil {
		return err
	}

	return printBooks(cmd.OutOrStdout(), []library.Book{book})
}

func (c *cli) runBookLookup(cmd *cobra.Command, args []string) error {
	result, err := c.lib.Coordinator.LookupBook(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ISBN:   %s\n", result.ISBN)
	fmt.Fprintf(out, "Title:  %s\n", result.Title)
	fmt.Fprintf(out, "Author: %s\n", result.Author)
	fmt.Fprintf(out, "Pages:  %d\n", result.Pages)
	fmt.Fprintf(out, "Genre:  %s\n", result.Genre)

	return nil
}
