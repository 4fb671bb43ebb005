// Package catalog provides the Catalog Store: the keyed collection of books owned by the library.
//
// The store keeps all books in memory and persists every change through a library.Committer
// before it becomes visible to readers. Availability of a book is changed only by the loan
// coordinator, which stages the change with StageAvailability, commits it together with the
// matching ledger change, and finally calls Apply.
package catalog
