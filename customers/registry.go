package customers

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	logMsgLoaded         = "customer registry loaded"
	logMsgRegistered     = "customer registered"
	logMsgDeleted        = "customer deleted"
	logMsgCommitFailed   = "customer registry commit failed"
	logAttrCustomerID    = "customer_id"
	logAttrCustomerCount = "customer_count"
	logAttrError         = "error"
)

// Persistence is what the Registry needs from a backend.
type Persistence interface {
	library.CustomerLoader
	library.Committer
}

// Registry is the in-memory set of registered customers, backed by a Persistence.
// Register and Delete hold the write lock, see WithWriteLock.
type Registry struct {
	backend     Persistence
	activeLoans ActiveLoanChecker
	logger      library.Logger

	mu        sync.RWMutex
	writeLock sync.Locker
	customers map[library.CustomerID]library.Customer
}

// NewRegistry creates an empty Registry. Call Load to fill it from the backend.
func NewRegistry(backend Persistence, options ...Option) (*Registry, error) {
	if backend == nil {
		return nil, library.ErrNilBackend
	}

	registry := &Registry{
		backend:   backend,
		writeLock: &sync.Mutex{},
		customers: make(map[library.CustomerID]library.Customer),
	}

	for _, option := range options {
		if err := option(registry); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Load replaces the in-memory registry with the customers of the backend.
func (r *Registry) Load(ctx context.Context) error {
	customers, err := r.backend.LoadCustomers(ctx)
	if err != nil {
		return errors.Join(library.ErrLoadFailed, err)
	}

	loaded := make(map[library.CustomerID]library.Customer, len(customers))
	for _, customer := range customers {
		loaded[customer.ID] = customer
	}

	r.mu.Lock()
	r.customers = loaded
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info(logMsgLoaded, logAttrCustomerCount, len(loaded))
	}

	return nil
}

// Register adds a new customer and persists it before returning.
func (r *Registry) Register(ctx context.Context, customer library.Customer) error {
	if err := library.Validate(customer); err != nil {
		return err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if r.Exists(customer.ID) {
		return errors.Join(library.ErrDuplicateKey, library.ErrCustomerAlreadyExists)
	}

	changes := library.Changeset{InsertedCustomers: []library.Customer{customer}}
	if err := r.commit(ctx, changes); err != nil {
		return err
	}

	r.Apply(changes)

	if r.logger != nil {
		r.logger.Info(logMsgRegistered, logAttrCustomerID, customer.ID)
	}

	return nil
}

// Exists reports whether the customer is registered.
func (r *Registry) Exists(id library.CustomerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.customers[id]

	return ok
}

// Get returns the registered customer with the given id.
func (r *Registry) Get(id library.CustomerID) (library.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.customers[id]
	if !ok {
		return library.Customer{}, errors.Join(library.ErrNotFound, library.ErrCustomerNotFound)
	}

	return customer, nil
}

// StageDelete builds the Changeset that removes the customer, without touching memory.
func (r *Registry) StageDelete(id library.CustomerID) (library.Changeset, error) {
	if _, err := r.Get(id); err != nil {
		return library.Changeset{}, err
	}

	return library.Changeset{DeletedCustomers: []library.CustomerID{id}}, nil
}

// Delete removes a customer. With an ActiveLoanChecker configured,
// customers that still borrow books are refused with ErrConflict.
func (r *Registry) Delete(ctx context.Context, id library.CustomerID) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	changes, err := r.StageDelete(id)
	if err != nil {
		return err
	}

	if r.activeLoans != nil && r.activeLoans.HasActiveLoanForCustomer(id) {
		return errors.Join(library.ErrConflict, library.ErrCustomerHasLoans)
	}

	if err = r.commit(ctx, changes); err != nil {
		return err
	}

	r.Apply(changes)

	if r.logger != nil {
		r.logger.Info(logMsgDeleted, logAttrCustomerID, id)
	}

	return nil
}

// Apply applies the customer part of an already committed Changeset to memory.
func (r *Registry) Apply(changes library.Changeset) {
	if !changes.TouchesCustomers() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, customer := range changes.InsertedCustomers {
		r.customers[customer.ID] = customer
	}

	for _, id := range changes.DeletedCustomers {
		delete(r.customers, id)
	}
}

// All returns a snapshot of all customers, ordered by id.
func (r *Registry) All() []library.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customers := make([]library.Customer, 0, len(r.customers))
	for _, customer := range r.customers {
		customers = append(customers, customer)
	}

	slices.SortFunc(customers, func(a, b library.Customer) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return customers
}

// Len returns the number of registered customers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.customers)
}

func (r *Registry) commit(ctx context.Context, changes library.Changeset) error {
	if err := r.backend.Commit(ctx, changes); err != nil {
		if r.logger != nil {
			r.logger.Error(logMsgCommitFailed, logAttrError, err.Error())
		}

		return errors.Join(library.ErrCommitFailed, err)
	}

	return nil
}
