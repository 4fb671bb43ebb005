package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/jsonfile"
	"github.com/AntonStoeckl/library-circulation-go/storage/sqlengine"
)

// ErrUnsupportedStorage is returned for a storage kind or driver Open does not know.
var ErrUnsupportedStorage = errors.New("unsupported storage")

// openBackend builds the configured backend. The returned closer releases its connections.
func openBackend(
	ctx context.Context,
	storage config.StorageConfig,
	logger *slog.Logger,
	obs observability,
) (library.Backend, func() error, error) {
	switch storage.Kind {
	case config.StorageJSON:
		backend, err := jsonfile.Open(storage.Directory, jsonfile.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}

		return backend, func() error { return nil }, nil

	case config.StoragePostgres:
		return openPostgres(ctx, storage, engineOptions(storage, logger, obs))

	case config.StorageSQLite:
		db, err := config.OpenSQLite(ctx, storage.DSN)
		if err != nil {
			return nil, nil, err
		}

		engine, err := sqlengine.NewFromSQLite(db, engineOptions(storage, logger, obs)...)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		// a fresh file has no tables, and there is no migration tool for SQLite
		if err = engine.CreateSchema(ctx); err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}

		return engine, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: kind %q", ErrUnsupportedStorage, storage.Kind)
	}
}

func openPostgres(
	ctx context.Context,
	storage config.StorageConfig,
	options []sqlengine.Option,
) (library.Backend, func() error, error) {
	var (
		engine *sqlengine.Engine
		closer func() error
		err    error
	)

	switch storage.Driver {
	case config.DriverPGX:
		pool, openErr := config.OpenPGXPool(ctx, storage)
		if openErr != nil {
			return nil, nil, openErr
		}

		closer = func() error {
			pool.Close()
			return nil
		}
		engine, err = sqlengine.NewFromPGXPool(pool, options...)

	case config.DriverSQL:
		db, openErr := config.OpenSQLDB(ctx, storage)
		if openErr != nil {
			return nil, nil, openErr
		}

		closer = db.Close
		engine, err = sqlengine.NewFromSQLDB(db, options...)

	case config.DriverSQLX:
		db, openErr := config.OpenSQLX(ctx, storage)
		if openErr != nil {
			return nil, nil, openErr
		}

		closer = db.Close
		engine, err = sqlengine.NewFromSQLX(db, options...)

	default:
		return nil, nil, fmt.Errorf("%w: driver %q", ErrUnsupportedStorage, storage.Driver)
	}

	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}

	if storage.CreateSchema {
		if err = engine.CreateSchema(ctx); err != nil {
			return nil, nil, errors.Join(err, closer())
		}
	}

	return engine, closer, nil
}

func engineOptions(storage config.StorageConfig, logger *slog.Logger, obs observability) []sqlengine.Option {
	options := []sqlengine.Option{
		sqlengine.WithTableNames(storage.Tables.Books, storage.Tables.Customers, storage.Tables.Loans),
		sqlengine.WithLogger(logger),
	}

	if obs.metrics != nil {
		options = append(options, sqlengine.WithMetrics(obs.metrics))
	}

	if obs.tracing != nil {
		options = append(options, sqlengine.WithTracing(obs.tracing))
	}

	if obs.contextualLogger != nil {
		options = append(options, sqlengine.WithContextualLogger(obs.contextualLogger))
	}

	return options
}
