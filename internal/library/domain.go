// internal/library/domain.go
package library

import (
	"time"

	"github.com/google/uuid"
)

// LoanPeriod is how long a member may keep a borrowed book.
const LoanPeriod = 14 * 24 * time.Hour

// Book is a catalog title. Quantity counts the copies currently on the shelf.
type Book struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Quantity      int       `json:"quantity"`
	PublishedYear int       `json:"publishedYear"`
}

// Member is a registered borrower.
type Member struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// LoanStatus tells whether a borrowing is still out.
type LoanStatus string

const (
	LoanOpen     LoanStatus = "OPEN"
	LoanReturned LoanStatus = "RETURNED"
)

// Borrowing records one loan of a book to a member. BookName and MemberName
// are copies of the business keys so reports need no joins; they are rewritten
// whenever the referenced title or name changes.
type Borrowing struct {
	ID         uuid.UUID  `json:"id"`
	BookID     uuid.UUID  `json:"bookId"`
	MemberID   uuid.UUID  `json:"memberId"`
	BookName   string     `json:"bookName"`
	MemberName string     `json:"memberName"`
	BorrowDate time.Time  `json:"borrowDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     LoanStatus `json:"status"`
}

// IsOpen reports whether the book has not been returned yet.
func (b Borrowing) IsOpen() bool {
	return b.Status == LoanOpen
}

// Loan is one row of the borrowing reports.
type Loan struct {
	Title      string
	MemberName string
}

// MarshalJSON renders a loan as a [title, memberName] pair.
func (l Loan) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Title, l.MemberName})
}

// UnmarshalJSON reads the pair written by MarshalJSON.
func (l *Loan) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	l.Title, l.MemberName = pair[0], pair[1]
	return nil
}

// BookFilter narrows a catalog search. Empty strings and nil years are ignored.
type BookFilter struct {
	Title    string
	Author   string
	YearFrom *int
	YearTo   *int
}

// HasYearRange reports whether both year bounds are set.
func (f BookFilter) HasYearRange() bool {
	return f.YearFrom != nil && f.YearTo != nil
}

// Day truncates t to midnight UTC. Loan dates are calendar days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
