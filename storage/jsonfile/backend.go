package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	filePermissions = 0o644
	dirPermissions  = 0o755
	indent          = "    "

	logMsgCommitted   = "json files committed"
	logMsgRestored    = "json file restored after failed commit"
	logMsgRestoreFail = "json file could not be restored after failed commit"
	logMsgLoaded      = "json file loaded"

	logAttrFile       = "file"
	logAttrRecords    = "records"
	logAttrChanges    = "changes"
	logAttrDurationMS = "duration_ms"
	logAttrError      = "error"
)

var (
	// ErrEmptyDirectory is returned when Open is called without a data directory.
	ErrEmptyDirectory = errors.New("data directory must not be empty")

	// ErrMissingRecord is returned when a changeset updates or deletes a record the files do not contain.
	ErrMissingRecord = errors.New("record to change does not exist in the data files")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Backend is a library.Backend that keeps books, customers, and loans in JSON files.
// Each collection is read from disk on its first load and cached; commits rewrite the touched files.
type Backend struct {
	dir           string
	booksFile     string
	customersFile string
	loansFile     string
	logger        library.Logger

	mu        sync.Mutex
	books     []library.Book
	customers []library.Customer
	loans     []library.Loan
	loaded    map[string]bool

	rename func(oldPath, newPath string) error
}

// Open creates a Backend for the given directory, creating the directory if it does not exist.
// Missing files are treated as empty collections.
func Open(dir string, options ...Option) (*Backend, error) {
	if dir == "" {
		return nil, ErrEmptyDirectory
	}

	b := &Backend{
		dir:           dir,
		booksFile:     DefaultBooksFile,
		customersFile: DefaultCustomersFile,
		loansFile:     DefaultLoansFile,
		loaded:        make(map[string]bool),
		rename:        os.Rename,
	}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return b, nil
}

// LoadBooks implements library.BookLoader.
func (b *Backend) LoadBooks(_ context.Context) ([]library.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureBooks(); err != nil {
		return nil, err
	}

	return append([]library.Book(nil), b.books...), nil
}

// LoadCustomers implements library.CustomerLoader.
func (b *Backend) LoadCustomers(_ context.Context) ([]library.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureCustomers(); err != nil {
		return nil, err
	}

	return append([]library.Customer(nil), b.customers...), nil
}

// LoadLoans implements library.LoanLoader. Loans are returned in file order.
func (b *Backend) LoadLoans(_ context.Context) ([]library.Loan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLoans(); err != nil {
		return nil, err
	}

	return append([]library.Loan(nil), b.loans...), nil
}

// Commit implements library.Committer.
// All touched files are replaced atomically one after the other; a failure restores the files written so far.
func (b *Backend) Commit(ctx context.Context, changes library.Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if changes.IsEmpty() {
		return nil
	}

	start := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	var pending []pendingFile

	if changes.TouchesBooks() {
		if err := b.ensureBooks(); err != nil {
			return err
		}

		books, err := applyToBooks(b.books, changes)
		if err != nil {
			return err
		}

		file, err := b.prepare(b.booksFile, books, func() { b.books = books })
		if err != nil {
			return err
		}

		pending = append(pending, file)
	}

	if changes.TouchesCustomers() {
		if err := b.ensureCustomers(); err != nil {
			return err
		}

		customers, err := applyToCustomers(b.customers, changes)
		if err != nil {
			return err
		}

		file, err := b.prepare(b.customersFile, customers, func() { b.customers = customers })
		if err != nil {
			return err
		}

		pending = append(pending, file)
	}

	if changes.TouchesLoans() {
		if err := b.ensureLoans(); err != nil {
			return err
		}

		loans, err := applyToLoans(b.loans, changes)
		if err != nil {
			return err
		}

		records := make([]loanRecord, 0, len(loans))
		for _, loan := range loans {
			records = append(records, toLoanRecord(loan))
		}

		file, err := b.prepare(b.loansFile, records, func() { b.loans = loans })
		if err != nil {
			return err
		}

		pending = append(pending, file)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.writeAll(pending); err != nil {
		return err
	}

	for _, file := range pending {
		file.swap()
	}

	if b.logger != nil {
		b.logger.Debug(logMsgCommitted,
			logAttrChanges, changes.Size(),
			logAttrDurationMS, durationToMilliseconds(time.Since(start)))
	}

	return nil
}

// pendingFile is the new content of one file, together with what it replaces.
type pendingFile struct {
	path     string
	content  []byte
	previous []byte
	existed  bool
	swap     func()
}

func (b *Backend) prepare(name string, records any, swap func()) (pendingFile, error) {
	path := filepath.Join(b.dir, name)

	content, err := jsonAPI.MarshalIndent(records, "", indent)
	if err != nil {
		return pendingFile{}, fmt.Errorf("encode %s: %w", name, err)
	}

	previous, err := os.ReadFile(path)
	switch {
	case err == nil:
		return pendingFile{path: path, content: content, previous: previous, existed: true, swap: swap}, nil
	case errors.Is(err, fs.ErrNotExist):
		return pendingFile{path: path, content: content, swap: swap}, nil
	default:
		return pendingFile{}, fmt.Errorf("read %s: %w", name, err)
	}
}

func (b *Backend) writeAll(files []pendingFile) error {
	for i, file := range files {
		if err := b.writeAtomically(file.path, file.content); err != nil {
			b.restore(files[:i])
			return fmt.Errorf("write %s: %w", filepath.Base(file.path), err)
		}
	}

	return nil
}

func (b *Backend) restore(written []pendingFile) {
	for _, file := range written {
		var err error
		if file.existed {
			err = b.writeAtomically(file.path, file.previous)
		} else {
			err = os.Remove(file.path)
		}

		if b.logger == nil {
			continue
		}

		if err != nil {
			b.logger.Error(logMsgRestoreFail, logAttrFile, file.path, logAttrError, err.Error())
		} else {
			b.logger.Warn(logMsgRestored, logAttrFile, file.path)
		}
	}
}

func (b *Backend) writeAtomically(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}

	if err = tmp.Close(); err != nil {
		cleanup()
		return err
	}

	if err = os.Chmod(tmpPath, filePermissions); err != nil {
		cleanup()
		return err
	}

	if err = b.rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}

	return nil
}

func (b *Backend) ensureBooks() error {
	if b.loaded[b.booksFile] {
		return nil
	}

	var books []library.Book
	if err := b.readFile(b.booksFile, &books); err != nil {
		return err
	}

	b.books = books
	b.loaded[b.booksFile] = true
	b.logLoaded(b.booksFile, len(books))

	return nil
}

func (b *Backend) ensureCustomers() error {
	if b.loaded[b.customersFile] {
		return nil
	}

	var customers []library.Customer
	if err := b.readFile(b.customersFile, &customers); err != nil {
		return err
	}

	b.customers = customers
	b.loaded[b.customersFile] = true
	b.logLoaded(b.customersFile, len(customers))

	return nil
}

func (b *Backend) ensureLoans() error {
	if b.loaded[b.loansFile] {
		return nil
	}

	var records []loanRecord
	if err := b.readFile(b.loansFile, &records); err != nil {
		return err
	}

	loans := make([]library.Loan, 0, len(records))
	for i, record := range records {
		loan, err := record.toLoan(i)
		if err != nil {
			return errors.Join(library.ErrLoadFailed, fmt.Errorf("%s: %w", b.loansFile, err))
		}

		loans = append(loans, loan)
	}

	b.loans = loans
	b.loaded[b.loansFile] = true
	b.logLoaded(b.loansFile, len(loans))

	return nil
}

// readFile decodes a JSON array file; a missing or empty file leaves target untouched.
func (b *Backend) readFile(name string, target any) error {
	content, err := os.ReadFile(filepath.Join(b.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return errors.Join(library.ErrLoadFailed, fmt.Errorf("read %s: %w", name, err))
	}

	if len(content) == 0 {
		return nil
	}

	if err = jsonAPI.Unmarshal(content, target); err != nil {
		return errors.Join(library.ErrLoadFailed, fmt.Errorf("decode %s: %w", name, err))
	}

	return nil
}

func (b *Backend) logLoaded(name string, records int) {
	if b.logger != nil {
		b.logger.Debug(logMsgLoaded, logAttrFile, name, logAttrRecords, records)
	}
}

func applyToBooks(current []library.Book, changes library.Changeset) ([]library.Book, error) {
	books := append([]library.Book(nil), current...)
	books = append(books, changes.InsertedBooks...)

	for _, updated := range changes.UpdatedBooks {
		i := indexOfBook(books, updated.ISBN)
		if i < 0 {
			return nil, errors.Join(ErrMissingRecord, fmt.Errorf("book %s", updated.ISBN))
		}

		books[i] = updated
	}

	for _, isbn := range changes.DeletedBooks {
		i := indexOfBook(books, isbn)
		if i < 0 {
			return nil, errors.Join(ErrMissingRecord, fmt.Errorf("book %s", isbn))
		}

		books = append(books[:i], books[i+1:]...)
	}

	return books, nil
}

func indexOfBook(books []library.Book, isbn library.ISBN) int {
	for i := range books {
		if books[i].ISBN == isbn {
			return i
		}
	}

	return -1
}

func applyToCustomers(current []library.Customer, changes library.Changeset) ([]library.Customer, error) {
	customers := append([]library.Customer(nil), current...)
	customers = append(customers, changes.InsertedCustomers...)

	for _, id := range changes.DeletedCustomers {
		i := -1
		for j := range customers {
			if customers[j].ID == id {
				i = j
				break
			}
		}

		if i < 0 {
			return nil, errors.Join(ErrMissingRecord, fmt.Errorf("customer %d", id))
		}

		customers = append(customers[:i], customers[i+1:]...)
	}

	return customers, nil
}

func applyToLoans(current []library.Loan, changes library.Changeset) ([]library.Loan, error) {
	loans := append([]library.Loan(nil), current...)
	loans = append(loans, changes.AppendedLoans...)

	for _, updated := range changes.UpdatedLoans {
		found := false
		for i := range loans {
			if loans[i].ID == updated.ID {
				loans[i] = updated
				found = true
				break
			}
		}

		if !found {
			return nil, errors.Join(ErrMissingRecord, fmt.Errorf("loan %s", updated.ID))
		}
	}

	return loans, nil
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
