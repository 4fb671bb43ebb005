package jsonfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/jsonfile"
)

var issuedAt = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func openBackend(t *testing.T, dir string, options ...jsonfile.Option) *jsonfile.Backend {
	t.Helper()

	backend, err := jsonfile.Open(dir, options...)
	require.NoError(t, err)

	return backend
}

func someBook(isbn library.ISBN) library.Book {
	return library.Book{ISBN: isbn, Title: "Title " + isbn, Author: "Author", Pages: 123, Genre: "General", Available: true}
}

func Test_Open_EmptyDirectory(t *testing.T) {
	// arrange
	dir := filepath.Join(t.TempDir(), "data")

	// act
	backend := openBackend(t, dir)
	books, booksErr := backend.LoadBooks(context.Background())
	customers, customersErr := backend.LoadCustomers(context.Background())
	loans, loansErr := backend.LoadLoans(context.Background())

	// assert
	assert.DirExists(t, dir)
	assert.NoError(t, booksErr)
	assert.NoError(t, customersErr)
	assert.NoError(t, loansErr)
	assert.Empty(t, books)
	assert.Empty(t, customers)
	assert.Empty(t, loans)
}

func Test_Open_Validation(t *testing.T) {
	_, err := jsonfile.Open("")
	assert.ErrorIs(t, err, jsonfile.ErrEmptyDirectory)

	_, err = jsonfile.Open(t.TempDir(), jsonfile.WithFileNames("books.json", "../customers.json", "loans.json"))
	assert.ErrorIs(t, err, jsonfile.ErrInvalidFileName)
}

func Test_Commit_SurvivesReopen(t *testing.T) {
	// arrange
	ctx := context.Background()
	dir := t.TempDir()
	backend := openBackend(t, dir)
	loan := library.BuildLoan(uuid.New(), "A", 1001, issuedAt)
	customer := library.Customer{ID: 1001, Name: "Ada", Email: "ada@example.com"}

	require.NoError(t, backend.Commit(ctx, library.Changeset{
		InsertedBooks:     []library.Book{someBook("A"), someBook("B")},
		InsertedCustomers: []library.Customer{customer},
	}))
	require.NoError(t, backend.Commit(ctx, library.Changeset{
		UpdatedBooks:  []library.Book{someBook("A").WithAvailability(false)},
		AppendedLoans: []library.Loan{loan},
	}))
	returned := loan.MarkReturned(issuedAt.Add(48 * time.Hour))
	require.NoError(t, backend.Commit(ctx, library.Changeset{
		UpdatedBooks: []library.Book{someBook("A")},
		UpdatedLoans: []library.Loan{returned},
		DeletedBooks: []library.ISBN{"B"},
	}))

	// act
	reopened := openBackend(t, dir)
	books, err := reopened.LoadBooks(ctx)
	require.NoError(t, err)
	customers, err := reopened.LoadCustomers(ctx)
	require.NoError(t, err)
	loans, err := reopened.LoadLoans(ctx)
	require.NoError(t, err)

	// assert
	assert.Equal(t, []library.Book{someBook("A")}, books)
	assert.Equal(t, []library.Customer{customer}, customers)
	require.Len(t, loans, 1)
	assert.Equal(t, returned.ID, loans[0].ID)
	assert.True(t, loans[0].IssueDate.Equal(returned.IssueDate))
	assert.True(t, loans[0].DueDate.Equal(returned.DueDate))
	require.NotNil(t, loans[0].ReturnedAt)
	assert.True(t, loans[0].ReturnedAt.Equal(*returned.ReturnedAt))
	assert.True(t, loans[0].Returned)
}

func Test_Load_LegacyFiles(t *testing.T) {
	// arrange
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, jsonfile.DefaultBooksFile, `[
    {"title": "Dune", "author": "Frank Herbert", "pages": 412, "available": false, "isbn": "9780441013593", "genre": "Fiction"}
]`)
	writeFile(t, dir, jsonfile.DefaultLoansFile, `[
    {"isbn": "9780441013593", "coustomer_id": 1001, "issue_date": "2025-02-01", "due_date": "2025-03-03", "returned": true},
    {"isbn": "9780441013593", "coustomer_id": 1002, "issue_date": "2025-03-05", "due_date": "2025-04-04", "returned": false}
]`)

	// act
	books, err := openBackend(t, dir).LoadBooks(ctx)
	require.NoError(t, err)
	loans, err := openBackend(t, dir).LoadLoans(ctx)
	require.NoError(t, err)
	loansAgain, err := openBackend(t, dir).LoadLoans(ctx)
	require.NoError(t, err)

	// assert
	require.Len(t, books, 1)
	assert.Equal(t, "Frank Herbert", books[0].Author)
	assert.False(t, books[0].Available)

	require.Len(t, loans, 2)
	assert.Equal(t, library.CustomerID(1002), loans[1].CustomerID)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), loans[1].IssueDate)
	assert.Equal(t, time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC), loans[1].DueDate)
	assert.True(t, loans[0].Returned)
	assert.Nil(t, loans[0].ReturnedAt)

	assert.NotEqual(t, uuid.Nil, loans[0].ID)
	assert.NotEqual(t, loans[0].ID, loans[1].ID)
	assert.Equal(t, loans[0].ID, loansAgain[0].ID, "legacy ids must be stable across reopen")
	assert.Equal(t, loans[1].ID, loansAgain[1].ID, "legacy ids must be stable across reopen")
}

func Test_Commit_RewritesLegacyLoansInCurrentLayout(t *testing.T) {
	// arrange
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, jsonfile.DefaultLoansFile, `[
    {"isbn": "A", "coustomer_id": 1001, "issue_date": "2025-03-05", "due_date": "2025-04-04", "returned": false}
]`)
	backend := openBackend(t, dir)
	loans, err := backend.LoadLoans(ctx)
	require.NoError(t, err)

	// act
	err = backend.Commit(ctx, library.Changeset{UpdatedLoans: []library.Loan{loans[0].MarkReturned(issuedAt)}})

	// assert
	require.NoError(t, err)
	content := readFile(t, dir, jsonfile.DefaultLoansFile)
	assert.Contains(t, content, `"customer_id": 1001`)
	assert.NotContains(t, content, "coustomer_id")
	assert.Contains(t, content, `"id": "`+loans[0].ID.String()+`"`)

	reloaded, err := openBackend(t, dir).LoadLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, loans[0].ID, reloaded[0].ID)
	assert.True(t, reloaded[0].Returned)
}

func Test_Load_CorruptFiles(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
		load    func(*jsonfile.Backend) error
	}{
		{
			name:    "books not json",
			file:    jsonfile.DefaultBooksFile,
			content: "{not json",
			load: func(b *jsonfile.Backend) error {
				_, err := b.LoadBooks(context.Background())
				return err
			},
		},
		{
			name:    "loan without customer",
			file:    jsonfile.DefaultLoansFile,
			content: `[{"isbn": "A", "issue_date": "2025-03-05", "due_date": "2025-04-04", "returned": false}]`,
			load: func(b *jsonfile.Backend) error {
				_, err := b.LoadLoans(context.Background())
				return err
			},
		},
		{
			name:    "loan with invalid date",
			file:    jsonfile.DefaultLoansFile,
			content: `[{"isbn": "A", "customer_id": 1, "issue_date": "05.03.2025", "due_date": "2025-04-04"}]`,
			load: func(b *jsonfile.Backend) error {
				_, err := b.LoadLoans(context.Background())
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			dir := t.TempDir()
			writeFile(t, dir, tc.file, tc.content)

			// act
			err := tc.load(openBackend(t, dir))

			// assert
			assert.ErrorIs(t, err, library.ErrLoadFailed)
		})
	}
}

func Test_Commit_MissingRecordLeavesFilesUntouched(t *testing.T) {
	// arrange
	ctx := context.Background()
	dir := t.TempDir()
	backend := openBackend(t, dir)
	require.NoError(t, backend.Commit(ctx, library.Changeset{InsertedBooks: []library.Book{someBook("A")}}))
	before := readFile(t, dir, jsonfile.DefaultBooksFile)

	// act
	err := backend.Commit(ctx, library.Changeset{
		UpdatedBooks:  []library.Book{someBook("A").WithAvailability(false)},
		UpdatedLoans:  []library.Loan{library.BuildLoan(uuid.New(), "A", 1, issuedAt)},
		AppendedLoans: nil,
	})

	// assert
	assert.ErrorIs(t, err, jsonfile.ErrMissingRecord)
	assert.Equal(t, before, readFile(t, dir, jsonfile.DefaultBooksFile))
	assert.NoFileExists(t, filepath.Join(dir, jsonfile.DefaultLoansFile))
}

func Test_Commit_CanceledContext(t *testing.T) {
	// arrange
	dir := t.TempDir()
	backend := openBackend(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := backend.Commit(ctx, library.Changeset{InsertedBooks: []library.Book{someBook("A")}})

	// assert
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoFileExists(t, filepath.Join(dir, jsonfile.DefaultBooksFile))
}

func Test_Commit_CustomFileNames(t *testing.T) {
	// arrange
	dir := t.TempDir()
	backend := openBackend(t, dir, jsonfile.WithFileNames("b.json", "c.json", "l.json"))

	// act
	err := backend.Commit(context.Background(), library.Changeset{
		InsertedCustomers: []library.Customer{{ID: 7, Name: "Grace"}},
	})

	// assert
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "c.json"))
	assert.NoFileExists(t, filepath.Join(dir, "b.json"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	return string(content)
}
