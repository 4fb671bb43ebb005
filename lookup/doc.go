// Package lookup provides a client for the Google Books volumes API.
//
// The client turns a normalized ISBN into the bibliographic fields of a catalog entry.
// A lookup is a read-only pre-validation step: it never touches library state, and callers
// must not hold any lock while it runs.
package lookup
