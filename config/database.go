package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver for database/sql and sqlx
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	postgresDriverName = "postgres"
	sqliteDriverName   = "sqlite"
)

var (
	// ErrOpeningDatabaseFailed is returned when a connection pool cannot be created.
	ErrOpeningDatabaseFailed = errors.New("opening database failed")

	// ErrPingingDatabaseFailed is returned when the database does not answer after opening.
	ErrPingingDatabaseFailed = errors.New("pinging database failed")
)

// OpenPGXPool creates a pgx pool for the configured DSN and checks that it answers.
func OpenPGXPool(ctx context.Context, storage StorageConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(storage.DSN)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	pool := storage.Pool
	if pool.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(pool.MaxOpenConns) //nolint:gosec // small config value
	}
	if pool.MinConns > 0 {
		poolConfig.MinConns = int32(pool.MinConns) //nolint:gosec // small config value
	}
	if d := durationOrZero(pool.ConnMaxLifetime); d > 0 {
		poolConfig.MaxConnLifetime = d
	}
	if d := durationOrZero(pool.ConnMaxIdleTime); d > 0 {
		poolConfig.MaxConnIdleTime = d
	}
	if d := durationOrZero(pool.ConnectTimeout); d > 0 {
		poolConfig.ConnConfig.ConnectTimeout = d
	}

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	if err = db.Ping(ctx); err != nil {
		db.Close()
		return nil, errors.Join(ErrPingingDatabaseFailed, err)
	}

	return db, nil
}

// OpenSQLDB creates a database/sql pool on the lib/pq driver.
func OpenSQLDB(ctx context.Context, storage StorageConfig) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, storage.DSN)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	applyPoolLimits(db, storage.Pool)

	if err = ping(ctx, db, storage.Pool); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLX creates a sqlx pool on the lib/pq driver.
func OpenSQLX(ctx context.Context, storage StorageConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, storage.DSN)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	applyPoolLimits(db.DB, storage.Pool)

	if err = ping(ctx, db.DB, storage.Pool); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens the SQLite database file. The pool is limited to one connection,
// so an in-memory database stays the same database and writers never contend for the file lock.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	db.SetMaxOpenConns(1)

	if err = ping(ctx, db, PoolConfig{}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func applyPoolLimits(db *sql.DB, pool PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if d := durationOrZero(pool.ConnMaxLifetime); d > 0 {
		db.SetConnMaxLifetime(d)
	}
	if d := durationOrZero(pool.ConnMaxIdleTime); d > 0 {
		db.SetConnMaxIdleTime(d)
	}
}

func ping(ctx context.Context, db *sql.DB, pool PoolConfig) error {
	if d := durationOrZero(pool.ConnectTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.Join(ErrPingingDatabaseFailed, err)
	}

	return nil
}

// durationOrZero is for values Validate has already checked, anything unparsable counts as unset.
func durationOrZero(value string) time.Duration {
	d, err := parseDuration(value)
	if err != nil {
		return 0
	}

	return d
}
