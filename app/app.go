package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/library-circulation-go/catalog"
	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/coordinator"
	"github.com/AntonStoeckl/library-circulation-go/customers"
	"github.com/AntonStoeckl/library-circulation-go/ledger"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/lookup"
)

const (
	logMsgOpened        = "library opened"
	logMsgInconsistency = "library data inconsistency found"
	logMsgInconsistent  = "library data is inconsistent"
	logAttrError        = "error"
	logAttrStorage      = "storage"
	logAttrBooks        = "books"
	logAttrCustomers    = "customers"
	logAttrLoans        = "loans"
	logAttrISBN         = "isbn"
	logAttrKind         = "kind"
	logAttrActiveLoans  = "active_loans"
	logAttrRepairable   = "repairable"
)

// ErrNilConfig is returned by Open without a configuration.
var ErrNilConfig = errors.New("config must not be nil")

// Library is a fully wired, loaded library process.
type Library struct {
	Config      *config.Config
	Logger      *slog.Logger
	Backend     library.Backend
	Catalog     *catalog.Store
	Customers   *customers.Registry
	Ledger      *ledger.Ledger
	Coordinator *coordinator.Coordinator

	closers []func(context.Context) error
}

// Open builds the backend named by cfg, loads all three stores from it in parallel,
// and checks the loaded data for inconsistencies. Findings are logged, not fatal.
func Open(ctx context.Context, cfg *config.Config, options ...Option) (*Library, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	s := settings{}
	for _, option := range options {
		if err := option(&s); err != nil {
			return nil, err
		}
	}

	if s.logger == nil {
		s.logger = cfg.Logging.NewLogger(os.Stderr)
	}

	lib := &Library{Config: cfg, Logger: s.logger}

	obs, err := setupTelemetry(ctx, cfg.Telemetry, s.logger)
	if err != nil {
		return nil, err
	}

	lib.closers = append(lib.closers, obs.shutdown)

	if err = lib.wire(ctx, s, obs); err != nil {
		return nil, errors.Join(err, lib.Close(ctx))
	}

	lib.Logger.Info(
		logMsgOpened,
		logAttrStorage, cfg.Storage.Kind,
		logAttrBooks, lib.Catalog.Len(),
		logAttrCustomers, lib.Customers.Len(),
		logAttrLoans, lib.Ledger.Len(),
	)

	lib.reportInconsistencies()

	return lib, nil
}

// Close releases the backend connections and flushes telemetry, in reverse order of acquisition.
func (l *Library) Close(ctx context.Context) error {
	var errs []error

	for i := len(l.closers) - 1; i >= 0; i-- {
		errs = append(errs, l.closers[i](ctx))
	}

	l.closers = nil

	return errors.Join(errs...)
}

func (l *Library) wire(ctx context.Context, s settings, obs observability) error {
	backend, closeBackend, err := openBackend(ctx, l.Config.Storage, l.Logger, obs)
	if err != nil {
		return err
	}

	l.Backend = backend
	l.closers = append(l.closers, func(context.Context) error { return closeBackend() })

	if l.Ledger, err = ledger.NewLedger(backend, ledger.WithLogger(l.Logger)); err != nil {
		return err
	}

	// one lock for the stores and the coordinator, so that no mutation path bypasses the other
	writeLock := &sync.Mutex{}

	l.Catalog, err = catalog.NewStore(
		backend,
		catalog.WithWriteLock(writeLock),
		catalog.WithActiveLoanChecker(l.Ledger),
		catalog.WithLogger(l.Logger),
	)
	if err != nil {
		return err
	}

	l.Customers, err = customers.NewRegistry(
		backend,
		customers.WithWriteLock(writeLock),
		customers.WithActiveLoanChecker(l.Ledger),
		customers.WithLogger(l.Logger),
	)
	if err != nil {
		return err
	}

	if err = l.load(ctx); err != nil {
		return err
	}

	client, err := l.lookupClient(s.httpClient)
	if err != nil {
		return err
	}

	coordinatorOptions := []coordinator.Option{
		coordinator.WithWriteLock(writeLock),
		coordinator.WithLogger(l.Logger),
		coordinator.WithLookup(client),
	}

	if s.clock != nil {
		coordinatorOptions = append(coordinatorOptions, coordinator.WithClock(s.clock))
	}

	if obs.contextualLogger != nil {
		coordinatorOptions = append(coordinatorOptions, coordinator.WithContextualLogger(obs.contextualLogger))
	}

	if obs.metrics != nil {
		coordinatorOptions = append(coordinatorOptions, coordinator.WithMetrics(obs.metrics))
	}

	if obs.tracing != nil {
		coordinatorOptions = append(coordinatorOptions, coordinator.WithTracing(obs.tracing))
	}

	l.Coordinator, err = coordinator.NewCoordinator(backend, l.Catalog, l.Customers, l.Ledger, coordinatorOptions...)

	return err
}

// load fills the three stores concurrently. The collections are independent,
// so one slow table or file does not hold up the others.
func (l *Library) load(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return l.Catalog.Load(groupCtx) })
	group.Go(func() error { return l.Customers.Load(groupCtx) })
	group.Go(func() error { return l.Ledger.Load(groupCtx) })

	return group.Wait()
}

func (l *Library) lookupClient(httpClient *http.Client) (*lookup.Client, error) {
	if httpClient == nil {
		timeout := l.Config.LookupTimeout()
		if timeout == 0 {
			timeout = lookup.DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	options := []lookup.Option{
		lookup.WithHTTPClient(httpClient),
		lookup.WithLogger(l.Logger),
	}

	if l.Config.Lookup.BaseURL != "" {
		options = append(options, lookup.WithBaseURL(l.Config.Lookup.BaseURL))
	}

	if l.Config.Lookup.APIKey != "" {
		options = append(options, lookup.WithAPIKey(l.Config.Lookup.APIKey))
	}

	return lookup.NewClient(options...)
}

func (l *Library) reportInconsistencies() {
	findings, err := l.Coordinator.CheckConsistency()
	if err == nil {
		return
	}

	l.Logger.Warn(logMsgInconsistent, logAttrError, err.Error())

	for _, finding := range findings {
		l.Logger.Warn(
			logMsgInconsistency,
			logAttrISBN, string(finding.ISBN),
			logAttrKind, string(finding.Kind),
			logAttrActiveLoans, finding.ActiveLoans,
			logAttrRepairable, finding.Repairable(),
		)
	}
}
