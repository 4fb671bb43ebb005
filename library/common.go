package library

import (
	"time"
)

// Instead of full value objects, the identity keys are alias types.

// ISBN is the identity key of a Book, always stored in normalized form.
type ISBN = string

// CustomerID is the identity key of a Customer, assigned by the caller.
type CustomerID = int64

// Timestamp is a point in time as stored by the backends.
type Timestamp = time.Time

// ToTimestamp converts a time to a Timestamp with UTC normalization and microsecond precision,
// which is the precision the relational backends can round-trip.
func ToTimestamp(t time.Time) Timestamp {
	return t.UTC().Truncate(time.Microsecond)
}

// CivilDate strips the time of day, yielding midnight UTC of the same calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
