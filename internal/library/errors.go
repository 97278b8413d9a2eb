// internal/library/errors.go
package library

import "errors"

var (
	// ErrEntityNotFound is returned when a book or member named in a loan request does not exist.
	ErrEntityNotFound = errors.New("either the book or member does not exist")
	// ErrBookNotAvailable is returned when lending would take the last copy off the shelf.
	ErrBookNotAvailable = errors.New("book is not available for borrowing")
	// ErrDuplicateKey is returned when a title or member name is already taken.
	ErrDuplicateKey = errors.New("record with the same key already exists")
	// ErrRecordNotFound is returned when a lookup by key or a return finds nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidInput is returned for requests that cannot be served as given.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInUse is returned when deleting a book or member that borrowings still reference.
	ErrInUse = errors.New("record is referenced by borrowings")
	// ErrConflict is returned when the store aborted a transaction that may succeed on retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrStoreFailure wraps unexpected persistence errors.
	ErrStoreFailure = errors.New("store failure")
)

// IsDomainError reports whether err is one of the errors callers are expected to handle,
// as opposed to a store or programming failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrEntityNotFound,
		ErrBookNotAvailable,
		ErrDuplicateKey,
		ErrRecordNotFound,
		ErrInvalidInput,
		ErrInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Problem is a domain error carrying the message shown to API callers.
type Problem struct {
	Kind    error
	Message string
}

// NewProblem wraps kind with a caller-facing message.
func NewProblem(kind error, message string) error {
	return &Problem{Kind: kind, Message: message}
}

func (p *Problem) Error() string { return p.Message }

func (p *Problem) Unwrap() error { return p.Kind }
