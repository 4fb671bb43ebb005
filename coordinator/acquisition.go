package coordinator

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/lookup"
)

// LookupBook fetches bibliographic data for a book that is not cataloged yet.
// No lock is held while the lookup runs.
//
// Errors:
//   - library.ErrDuplicateKey if the book is already cataloged
//   - library.ErrNotFound if the bibliographic service knows no such volume
//   - library.ErrUpstreamUnavailable if the service failed or was rate-limited
func (c *Coordinator) LookupBook(ctx context.Context, rawISBN string) (result lookup.Result, err error) {
	ctx, observation := c.startOperation(ctx, OperationLookupBook, rawISBN, 0)
	defer func() { observation.finish(err) }()

	return c.lookupBook(ctx, rawISBN)
}

// AddBookFromLookup looks the book up and catalogs it as a new, available book.
func (c *Coordinator) AddBookFromLookup(ctx context.Context, rawISBN string) (book library.Book, err error) {
	ctx, observation := c.startOperation(ctx, OperationAddBookFromLookup, rawISBN, 0)
	defer func() { observation.finish(err) }()

	result, err := c.lookupBook(ctx, rawISBN)
	if err != nil {
		return library.Book{}, err
	}

	if book, err = result.ToBook(); err != nil {
		return library.Book{}, err
	}

	if err = c.catalog.Insert(ctx, book); err != nil {
		return library.Book{}, err
	}

	return book, nil
}

func (c *Coordinator) lookupBook(ctx context.Context, rawISBN string) (lookup.Result, error) {
	isbn, err := normalize(rawISBN)
	if err != nil {
		return lookup.Result{}, err
	}

	if c.catalog.Contains(isbn) {
		return lookup.Result{}, errors.Join(library.ErrDuplicateKey, library.ErrBookAlreadyCataloged)
	}

	if c.lookup == nil {
		return lookup.Result{}, errors.Join(library.ErrUpstreamUnavailable, ErrLookupNotConfigured)
	}

	result, err := c.lookup.Lookup(ctx, isbn)
	if err != nil {
		return lookup.Result{}, err
	}

	if !result.Found {
		return lookup.Result{}, errors.Join(library.ErrNotFound, ErrBookUnknownUpstream)
	}

	return result, nil
}
