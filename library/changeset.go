package library

// Changeset is the unit of work committed atomically to a persistence backend.
//
// Stores stage their part of a mutation as a Changeset without touching memory,
// the coordinator merges the parts, commits them in one go, and then lets every store Apply them.
type Changeset struct {
	InsertedBooks     []Book
	UpdatedBooks      []Book
	DeletedBooks      []ISBN
	InsertedCustomers []Customer
	DeletedCustomers  []CustomerID
	AppendedLoans     []Loan
	UpdatedLoans      []Loan
}

// Merge returns a new Changeset containing the changes of both.
func (c Changeset) Merge(other Changeset) Changeset {
	return Changeset{
		InsertedBooks:     append(append([]Book(nil), c.InsertedBooks...), other.InsertedBooks...),
		UpdatedBooks:      append(append([]Book(nil), c.UpdatedBooks...), other.UpdatedBooks...),
		DeletedBooks:      append(append([]ISBN(nil), c.DeletedBooks...), other.DeletedBooks...),
		InsertedCustomers: append(append([]Customer(nil), c.InsertedCustomers...), other.InsertedCustomers...),
		DeletedCustomers:  append(append([]CustomerID(nil), c.DeletedCustomers...), other.DeletedCustomers...),
		AppendedLoans:     append(append([]Loan(nil), c.AppendedLoans...), other.AppendedLoans...),
		UpdatedLoans:      append(append([]Loan(nil), c.UpdatedLoans...), other.UpdatedLoans...),
	}
}

// IsEmpty reports whether the Changeset contains no changes at all.
func (c Changeset) IsEmpty() bool {
	return !c.TouchesBooks() && !c.TouchesCustomers() && !c.TouchesLoans()
}

// TouchesBooks reports whether the book collection is affected.
func (c Changeset) TouchesBooks() bool {
	return len(c.InsertedBooks)+len(c.UpdatedBooks)+len(c.DeletedBooks) > 0
}

// TouchesCustomers reports whether the customer collection is affected.
func (c Changeset) TouchesCustomers() bool {
	return len(c.InsertedCustomers)+len(c.DeletedCustomers) > 0
}

// TouchesLoans reports whether the loan collection is affected.
func (c Changeset) TouchesLoans() bool {
	return len(c.AppendedLoans)+len(c.UpdatedLoans) > 0
}

// Size is the total number of changed records, used for logging and metrics.
func (c Changeset) Size() int {
	return len(c.InsertedBooks) + len(c.UpdatedBooks) + len(c.DeletedBooks) +
		len(c.InsertedCustomers) + len(c.DeletedCustomers) +
		len(c.AppendedLoans) + len(c.UpdatedLoans)
}
