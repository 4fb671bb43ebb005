package catalog

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	logMsgLoaded         = "catalog loaded"
	logMsgBookInserted   = "book inserted"
	logMsgBookDeleted    = "book deleted"
	logMsgAvailability   = "book availability changed"
	logMsgCommitFailed   = "catalog commit failed"
	logAttrISBN          = "isbn"
	logAttrBookCount     = "book_count"
	logAttrAvailable     = "available"
	logAttrError         = "error"
	logAttrChangesetSize = "changeset_size"
)

// Persistence is what the Store needs from a backend.
type Persistence interface {
	library.BookLoader
	library.Committer
}

// Store is the in-memory catalog of books, backed by a Persistence.
//
// Readers use the RWMutex. Insert, Delete, and SetAvailability hold the write lock across
// check and commit; share it with the coordinator via WithWriteLock so that they serialize with
// issue and return.
// ISBN keys are normalized on the way in.
type Store struct {
	backend     Persistence
	activeLoans ActiveLoanChecker
	logger      library.Logger

	mu        sync.RWMutex
	writeLock sync.Locker
	books     map[library.ISBN]library.Book
}

// NewStore creates an empty Store. Call Load to fill it from the backend.
func NewStore(backend Persistence, options ...Option) (*Store, error) {
	if backend == nil {
		return nil, library.ErrNilBackend
	}

	store := &Store{
		backend:   backend,
		writeLock: &sync.Mutex{},
		books:     make(map[library.ISBN]library.Book),
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Load replaces the in-memory catalog with the books of the backend.
func (s *Store) Load(ctx context.Context) error {
	books, err := s.backend.LoadBooks(ctx)
	if err != nil {
		return errors.Join(library.ErrLoadFailed, err)
	}

	loaded := make(map[library.ISBN]library.Book, len(books))
	for _, book := range books {
		loaded[book.ISBN] = book
	}

	s.mu.Lock()
	s.books = loaded
	s.mu.Unlock()

	s.logInfo(logMsgLoaded, logAttrBookCount, len(loaded))

	return nil
}

// Insert adds a new book to the catalog and persists it before returning.
func (s *Store) Insert(ctx context.Context, book library.Book) error {
	isbn, err := normalize(book.ISBN)
	if err != nil {
		return err
	}

	book.ISBN = isbn

	if err = library.Validate(book); err != nil {
		return err
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := s.Get(book.ISBN); err == nil {
		return errors.Join(library.ErrDuplicateKey, library.ErrBookAlreadyCataloged)
	}

	changes := library.Changeset{InsertedBooks: []library.Book{book}}
	if err = s.commit(ctx, changes); err != nil {
		return err
	}

	s.Apply(changes)
	s.logInfo(logMsgBookInserted, logAttrISBN, book.ISBN)

	return nil
}

// Get returns the book with the given ISBN, which may be hyphenated.
func (s *Store) Get(isbn library.ISBN) (library.Book, error) {
	isbn, err := normalize(isbn)
	if err != nil {
		return library.Book{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[isbn]
	if !ok {
		return library.Book{}, errors.Join(library.ErrNotFound, library.ErrBookNotFound)
	}

	return book, nil
}

// Contains reports whether a book with the given ISBN is cataloged.
func (s *Store) Contains(isbn library.ISBN) bool {
	_, err := s.Get(isbn)
	return err == nil
}

// StageDelete builds the Changeset that removes the book, without touching memory.
func (s *Store) StageDelete(isbn library.ISBN) (library.Changeset, error) {
	book, err := s.Get(isbn)
	if err != nil {
		return library.Changeset{}, err
	}

	return library.Changeset{DeletedBooks: []library.ISBN{book.ISBN}}, nil
}

// Delete removes a book from the catalog.
// With an ActiveLoanChecker configured, books on loan are refused with ErrConflict.
func (s *Store) Delete(ctx context.Context, isbn library.ISBN) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	changes, err := s.StageDelete(isbn)
	if err != nil {
		return err
	}

	isbn = changes.DeletedBooks[0]

	if s.activeLoans != nil && s.activeLoans.HasActiveLoanForBook(isbn) {
		return errors.Join(library.ErrConflict, library.ErrBookOnLoan)
	}

	if err = s.commit(ctx, changes); err != nil {
		return err
	}

	s.Apply(changes)
	s.logInfo(logMsgBookDeleted, logAttrISBN, isbn)

	return nil
}

// StageAvailability builds the Changeset that sets the availability of a book, without touching memory.
func (s *Store) StageAvailability(isbn library.ISBN, available bool) (library.Changeset, error) {
	book, err := s.Get(isbn)
	if err != nil {
		return library.Changeset{}, err
	}

	return library.Changeset{UpdatedBooks: []library.Book{book.WithAvailability(available)}}, nil
}

// SetAvailability persists and applies an availability toggle on its own.
// Issue and return never use it, they commit availability together with the loan.
func (s *Store) SetAvailability(ctx context.Context, isbn library.ISBN, available bool) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	changes, err := s.StageAvailability(isbn, available)
	if err != nil {
		return err
	}

	isbn = changes.UpdatedBooks[0].ISBN

	if err = s.commit(ctx, changes); err != nil {
		return err
	}

	s.Apply(changes)
	s.logInfo(logMsgAvailability, logAttrISBN, isbn, logAttrAvailable, available)

	return nil
}

// Apply applies the book part of an already committed Changeset to memory.
func (s *Store) Apply(changes library.Changeset) {
	if !changes.TouchesBooks() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range changes.InsertedBooks {
		s.books[book.ISBN] = book
	}

	for _, book := range changes.UpdatedBooks {
		s.books[book.ISBN] = book
	}

	for _, isbn := range changes.DeletedBooks {
		delete(s.books, isbn)
	}
}

// All returns a snapshot of all books, ordered by ISBN.
func (s *Store) All() []library.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]library.Book, 0, len(s.books))
	for _, isbn := range slices.Sorted(maps.Keys(s.books)) {
		books = append(books, s.books[isbn])
	}

	return books
}

// Len returns the number of cataloged books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.books)
}

func normalize(isbn library.ISBN) (library.ISBN, error) {
	normalized, err := library.NormalizeISBN(isbn)
	if err != nil {
		return "", errors.Join(library.ErrInvalidInput, err)
	}

	return normalized, nil
}

func (s *Store) commit(ctx context.Context, changes library.Changeset) error {
	if err := s.backend.Commit(ctx, changes); err != nil {
		s.logError(logMsgCommitFailed, logAttrChangesetSize, changes.Size(), logAttrError, err.Error())
		return errors.Join(library.ErrCommitFailed, err)
	}

	return nil
}

func (s *Store) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
