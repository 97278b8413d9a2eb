// internal/circulation/domain.go
package circulation

import "time"

const (
	msgEntityNotFound = "Either the book or member does not exist."
	msgNotAvailable   = "Sorry!! This book is currently not available for borrowing."
	msgRecordNotFound = "Borrowing record not found for the given book and member."
	msgUnexpected     = "An unexpected error occurred."
)

// dateLayout is the format of the currentDate query parameter.
const dateLayout = "2006-01-02"

// Clock returns the current time. Loan dates are taken from it.
type Clock func() time.Time

// Metric attribute values.
const (
	opBorrow = "borrow"
	opReturn = "return"

	outcomeOK           = "ok"
	outcomeNotFound     = "not_found"
	outcomeNotAvailable = "not_available"
	outcomeConflict     = "conflict"
	outcomeError        = "error"
)
