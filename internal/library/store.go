// internal/library/store.go
package library

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookRepository persists books. Lookups that miss return ErrRecordNotFound.
type BookRepository interface {
	List(ctx context.Context) ([]Book, error)
	FindByTitle(ctx context.Context, title string) (Book, error)
	// LockByTitle and LockByID read a book and hold a write lock on it until
	// the enclosing transaction ends. Outside WithinTx they behave like plain reads.
	LockByTitle(ctx context.Context, title string) (Book, error)
	LockByID(ctx context.Context, id uuid.UUID) (Book, error)
	Search(ctx context.Context, filter BookFilter) ([]Book, error)
	Insert(ctx context.Context, book Book) error
	Update(ctx context.Context, book Book) error
	DeleteByTitle(ctx context.Context, title string) error
}

// MemberRepository persists members. Lookups that miss return ErrRecordNotFound.
type MemberRepository interface {
	List(ctx context.Context) ([]Member, error)
	FindByName(ctx context.Context, name string) (Member, error)
	// LockByName reads a member and holds a write lock on it until the
	// enclosing transaction ends. ShareByName holds a shared lock instead: the
	// row cannot be renamed or deleted, but other sharers are not blocked.
	LockByName(ctx context.Context, name string) (Member, error)
	ShareByName(ctx context.Context, name string) (Member, error)
	Insert(ctx context.Context, member Member) error
	Update(ctx context.Context, member Member) error
	DeleteByName(ctx context.Context, name string) error
}

// BorrowingRepository persists loans.
type BorrowingRepository interface {
	Insert(ctx context.Context, borrowing Borrowing) error
	// LockOpen returns the oldest open loan of the title to the member and
	// locks it like BookRepository.LockByID does.
	LockOpen(ctx context.Context, bookName, memberName string) (Borrowing, error)
	Update(ctx context.Context, borrowing Borrowing) error
	OpenDueAfter(ctx context.Context, day time.Time) ([]Loan, error)
	OpenDueBefore(ctx context.Context, day time.Time) ([]Loan, error)
	RenameBook(ctx context.Context, bookID uuid.UUID, title string) error
	RenameMember(ctx context.Context, memberID uuid.UUID, name string) error
}

// Repositories groups the repositories that share one connection or transaction.
type Repositories interface {
	Books() BookRepository
	Members() MemberRepository
	Borrowings() BorrowingRepository
}

// Store is the record store behind every service.
type Store interface {
	Repositories
	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
