// Package ledger provides the Loan Ledger: the append-mostly log of all loans.
//
// Loans are never removed. A return replaces the loan record with its returned version.
// Besides the log itself the ledger maintains derived indices:
//   - isbn to the most recently appended active loan, invalidated on return
//   - customer to the positions of all its loans, for history queries
//   - customer to the number of its active loans
//
// The ledger does not persist anything itself. The coordinator commits staged changes
// through a backend and then applies them here.
package ledger
