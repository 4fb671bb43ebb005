// Package testdoubles provides test doubles for the persistence and observability boundaries.
//
// BackendSpy is an in-memory library.Backend that records every committed Changeset and can be told
// to fail. The spies for logging, metrics, and tracing capture calls for inspection in tests.
package testdoubles
