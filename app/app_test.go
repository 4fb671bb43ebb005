package app_test

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/app"
	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/jsonfile"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

var fixedNow = time.Date(2025, 4, 2, 14, 0, 0, 0, time.UTC)

func jsonConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Kind = config.StorageJSON
	cfg.Storage.Directory = t.TempDir()

	return cfg
}

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Kind = config.StorageSQLite
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "library.db")

	return cfg
}

func openLibrary(t *testing.T, cfg *config.Config, options ...app.Option) *app.Library {
	t.Helper()

	options = append([]app.Option{
		app.WithLogger(slog.New(testdoubles.NewLogHandlerSpy(false))),
		app.WithClock(func() time.Time { return fixedNow }),
	}, options...)

	lib, err := app.Open(context.Background(), cfg, options...)
	require.NoError(t, err)

	return lib
}

func seedAndIssue(t *testing.T, lib *app.Library) library.Loan {
	t.Helper()

	ctx := context.Background()

	book, err := library.BuildBook("978-0-13-468599-1", "The Go Programming Language", "Donovan", 380, "Programming")
	require.NoError(t, err)
	require.NoError(t, lib.Catalog.Insert(ctx, book))

	customer, err := library.BuildCustomer(1001, "Ada Lovelace", "ada@example.com", "")
	require.NoError(t, err)
	require.NoError(t, lib.Customers.Register(ctx, customer))

	loan, err := lib.Coordinator.IssueBook(ctx, "9780134685991", 1001)
	require.NoError(t, err)

	return loan
}

func Test_Open_StateSurvivesReopen(t *testing.T) {
	testCases := []struct {
		name   string
		config func(t *testing.T) *config.Config
	}{
		{name: "json files", config: jsonConfig},
		{name: "sqlite file", config: sqliteConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			cfg := tc.config(t)
			first := openLibrary(t, cfg)
			loan := seedAndIssue(t, first)
			require.NoError(t, first.Close(context.Background()))

			// act
			second := openLibrary(t, cfg)
			defer func() { _ = second.Close(context.Background()) }()

			// assert
			book, err := second.Catalog.Get("9780134685991")
			require.NoError(t, err)
			assert.False(t, book.Available)
			assert.True(t, second.Customers.Exists(1001))

			active, err := second.Ledger.FindActiveLoan("9780134685991")
			require.NoError(t, err)
			assert.Equal(t, loan.ID, active.ID)
			assert.Equal(t, library.ToTimestamp(fixedNow), active.IssueDate)
		})
	}
}

func Test_Open_ReportsInconsistenciesWithoutFailing(t *testing.T) {
	// arrange
	ctx := context.Background()
	cfg := sqliteConfig(t)

	first := openLibrary(t, cfg)
	book, err := library.BuildBook("12345", "Lost Book", "Someone", 100, "Mystery")
	require.NoError(t, err)
	require.NoError(t, first.Catalog.Insert(ctx, book))

	// an older tool flipped the flag without writing a loan
	require.NoError(t, first.Backend.Commit(ctx, library.Changeset{
		UpdatedBooks: []library.Book{book.WithAvailability(false)},
	}))
	require.NoError(t, first.Close(ctx))

	logHandler := testdoubles.NewLogHandlerSpy(false)

	// act
	second, err := app.Open(ctx, cfg, app.WithLogger(slog.New(logHandler)))

	// assert
	require.NoError(t, err)
	defer func() { _ = second.Close(ctx) }()

	assert.True(t, logHandler.HasLogWithMessage(slog.LevelWarn, "library data is inconsistent").
		WithAttrKey("error").
		Assert())
	assert.True(t, logHandler.HasLogWithMessage(slog.LevelWarn, "library data inconsistency found").
		WithAttr("isbn", "12345").
		WithAttr("kind", "unavailable_without_loan").
		WithAttr("repairable", "true").
		Assert())
	assert.True(t, logHandler.HasLogWithMessage(slog.LevelInfo, "library opened").
		WithAttr("storage", "sqlite").
		WithAttr("books", "1").
		Assert())
}

func Test_Open_Failures(t *testing.T) {
	testCases := []struct {
		name        string
		config      func(t *testing.T) *config.Config
		options     []app.Option
		expectedErr error
	}{
		{
			name:        "nil config",
			config:      func(*testing.T) *config.Config { return nil },
			expectedErr: app.ErrNilConfig,
		},
		{
			name:        "nil logger",
			config:      jsonConfig,
			options:     []app.Option{app.WithLogger(nil)},
			expectedErr: app.ErrNilOption,
		},
		{
			name:        "nil clock",
			config:      jsonConfig,
			options:     []app.Option{app.WithClock(nil)},
			expectedErr: app.ErrNilOption,
		},
		{
			name:        "nil http client",
			config:      jsonConfig,
			options:     []app.Option{app.WithHTTPClient(nil)},
			expectedErr: app.ErrNilOption,
		},
		{
			name: "unknown storage kind",
			config: func(t *testing.T) *config.Config {
				cfg := jsonConfig(t)
				cfg.Storage.Kind = "tape"
				return cfg
			},
			expectedErr: app.ErrUnsupportedStorage,
		},
		{
			name: "unknown postgres driver",
			config: func(t *testing.T) *config.Config {
				cfg := jsonConfig(t)
				cfg.Storage.Kind = config.StoragePostgres
				cfg.Storage.Driver = "odbc"
				return cfg
			},
			expectedErr: app.ErrUnsupportedStorage,
		},
		{
			name: "corrupt data file",
			config: func(t *testing.T) *config.Config {
				cfg := jsonConfig(t)
				require.NoError(t, writeFile(filepath.Join(cfg.Storage.Directory, jsonfile.DefaultBooksFile), "{not json"))
				return cfg
			},
			expectedErr: library.ErrLoadFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			lib, err := app.Open(context.Background(), tc.config(t), tc.options...)

			// assert
			assert.Nil(t, lib)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_Open_TelemetryWithoutExporter(t *testing.T) {
	// arrange
	cfg := sqliteConfig(t)
	cfg.Telemetry.Enabled = true
	logHandler := testdoubles.NewLogHandlerSpy(false)

	// act
	lib := openLibrary(
		t,
		cfg,
		app.WithHTTPClient(&http.Client{Timeout: time.Second}),
		app.WithLogger(slog.New(logHandler)),
	)
	defer func() { _ = lib.Close(context.Background()) }()

	// assert
	seedAndIssue(t, lib)
	assert.Equal(t, 1, lib.Ledger.Len())
	assert.True(t, logHandler.HasLogWithMessage(slog.LevelInfo, "coordinator operation completed").Assert())
}

func Test_Library_Close_IsIdempotent(t *testing.T) {
	// arrange
	lib := openLibrary(t, jsonConfig(t))

	// act & assert
	require.NoError(t, lib.Close(context.Background()))
	require.NoError(t, lib.Close(context.Background()))
}
