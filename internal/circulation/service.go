// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"libradesk/internal/library"
)

// Service defines the interface for the circulation service.
type Service interface {
	// Borrow lends one copy of the title to the member. The last copy of a
	// title never leaves the shelf.
	Borrow(ctx context.Context, bookName, memberName string) (library.Borrowing, error)
	// Return closes the member's open loan of the title and puts the copy back.
	Return(ctx context.Context, bookName, memberName string) (library.Borrowing, error)
	// CurrentlyBorrowed lists open loans due after asOf.
	CurrentlyBorrowed(ctx context.Context, asOf time.Time) ([]library.Loan, error)
	// Overdue lists open loans whose due date has passed.
	Overdue(ctx context.Context) ([]library.Loan, error)
}
