// Package storetest holds the behavior every library.Store implementation
// must share. Store packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/library"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) library.Store

// Run executes the shared store suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("members", func(t *testing.T) { testMembers(t, newStore(t)) })
	t.Run("borrowings", func(t *testing.T) { testBorrowings(t, newStore(t)) })
	t.Run("search", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("lock serializes decrements", func(t *testing.T) { testLockSerializes(t, newStore(t)) })
	t.Run("rename waits for shared member", func(t *testing.T) { testRenameWaitsForShare(t, newStore(t)) })
}

// NewBook builds a book with a fresh id.
func NewBook(title string, quantity, year int) library.Book {
	return library.Book{ID: uuid.New(), Title: title, Author: "Author of " + title, Quantity: quantity, PublishedYear: year}
}

// NewMember builds a member with a fresh id.
func NewMember(name string) library.Member {
	return library.Member{ID: uuid.New(), Name: name, Email: name + "@example.com"}
}

func testBooks(t *testing.T, store library.Store) {
	ctx := context.Background()
	books := store.Books()

	dune := NewBook("Dune", 3, 1965)
	require.NoError(t, books.Insert(ctx, dune))
	require.NoError(t, books.Insert(ctx, NewBook("Anathem", 1, 2008)))

	err := books.Insert(ctx, NewBook("Dune", 1, 2000))
	assert.ErrorIs(t, err, library.ErrDuplicateKey)

	got, err := books.FindByTitle(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, dune, got)

	_, err = books.FindByTitle(ctx, "Missing")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)

	dune.Title = "Dune Messiah"
	dune.Quantity = 7
	require.NoError(t, books.Update(ctx, dune))

	got, err = books.LockByID(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, 7, got.Quantity)

	renamed := dune
	renamed.Title = "Anathem"
	assert.ErrorIs(t, books.Update(ctx, renamed), library.ErrDuplicateKey)

	all, err := books.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Anathem", all[0].Title)
	assert.Equal(t, "Dune Messiah", all[1].Title)

	require.NoError(t, books.DeleteByTitle(ctx, "Anathem"))
	assert.ErrorIs(t, books.DeleteByTitle(ctx, "Anathem"), library.ErrRecordNotFound)
}

func testMembers(t *testing.T, store library.Store) {
	ctx := context.Background()
	members := store.Members()

	alice := NewMember("Alice")
	require.NoError(t, members.Insert(ctx, alice))
	assert.ErrorIs(t, members.Insert(ctx, NewMember("Alice")), library.ErrDuplicateKey)

	got, err := members.FindByName(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	alice.Email = "alice@library.test"
	require.NoError(t, members.Update(ctx, alice))

	got, err = members.FindByName(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@library.test", got.Email)

	all, err := members.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		locked, err := tx.Members().LockByName(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, locked.ID)

		shared, err := tx.Members().ShareByName(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, shared.ID)

		_, err = tx.Members().LockByName(ctx, "Nobody")
		assert.ErrorIs(t, err, library.ErrRecordNotFound)
		_, err = tx.Members().ShareByName(ctx, "Nobody")
		assert.ErrorIs(t, err, library.ErrRecordNotFound)
		return nil
	}))

	require.NoError(t, members.DeleteByName(ctx, "Alice"))
	_, err = members.FindByName(ctx, "Alice")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
	assert.ErrorIs(t, members.DeleteByName(ctx, "Alice"), library.ErrRecordNotFound)
}

func testBorrowings(t *testing.T, store library.Store) {
	ctx := context.Background()
	today := library.Day(time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC))

	book := NewBook("Scary Nights", 6, 2019)
	alice := NewMember("Alice")
	require.NoError(t, store.Books().Insert(ctx, book))
	require.NoError(t, store.Members().Insert(ctx, alice))

	loan := library.Borrowing{
		ID:         uuid.New(),
		BookID:     book.ID,
		MemberID:   alice.ID,
		BookName:   book.Title,
		MemberName: alice.Name,
		BorrowDate: today,
		DueDate:    today.Add(library.LoanPeriod),
		Status:     library.LoanOpen,
	}
	require.NoError(t, store.Borrowings().Insert(ctx, loan))

	got, err := store.Borrowings().LockOpen(ctx, "Scary Nights", "Alice")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)
	assert.True(t, got.DueDate.Equal(today.AddDate(0, 0, 14)))
	assert.Nil(t, got.ReturnDate)

	current, err := store.Borrowings().OpenDueAfter(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, []library.Loan{{Title: "Scary Nights", MemberName: "Alice"}}, current)

	overdue, err := store.Borrowings().OpenDueBefore(ctx, today.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, []library.Loan{{Title: "Scary Nights", MemberName: "Alice"}}, overdue)

	assert.ErrorIs(t, store.Books().DeleteByTitle(ctx, "Scary Nights"), library.ErrInUse)
	assert.ErrorIs(t, store.Members().DeleteByName(ctx, "Alice"), library.ErrInUse)

	require.NoError(t, store.Borrowings().RenameBook(ctx, book.ID, "Scarier Nights"))
	require.NoError(t, store.Borrowings().RenameMember(ctx, alice.ID, "Alice B"))

	got, err = store.Borrowings().LockOpen(ctx, "Scarier Nights", "Alice B")
	require.NoError(t, err)

	returned := today.AddDate(0, 0, 3)
	got.ReturnDate = &returned
	got.Status = library.LoanReturned
	require.NoError(t, store.Borrowings().Update(ctx, got))

	_, err = store.Borrowings().LockOpen(ctx, "Scarier Nights", "Alice B")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)

	// Returned loans leave both reports.
	overdue, err = store.Borrowings().OpenDueBefore(ctx, today.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	current, err = store.Borrowings().OpenDueAfter(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, current)
}

func testSearch(t *testing.T, store library.Store) {
	ctx := context.Background()
	for _, b := range []library.Book{
		NewBook("Micronaut", 2, 2018),
		NewBook("Micronaut in Action", 2, 2021),
		NewBook("Scary Nights", 2, 2001),
		NewBook("Gardening Basics", 2, 1999),
	} {
		require.NoError(t, store.Books().Insert(ctx, b))
	}

	byTitle, err := store.Books().Search(ctx, library.BookFilter{Title: "Micronaut"})
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, "Micronaut", byTitle[0].Title)
	assert.Equal(t, "Micronaut in Action", byTitle[1].Title)

	byAuthor, err := store.Books().Search(ctx, library.BookFilter{Author: "scary"})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Scary Nights", byAuthor[0].Title)

	from, to := 2000, 2020
	byYears, err := store.Books().Search(ctx, library.BookFilter{YearFrom: &from, YearTo: &to})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Micronaut", "Scary Nights"}, titles(byYears))

	both, err := store.Books().Search(ctx, library.BookFilter{Title: "Micronaut", YearFrom: &from, YearTo: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"Micronaut"}, titles(both))

	inverted, err := store.Books().Search(ctx, library.BookFilter{YearFrom: &to, YearTo: &from})
	require.NoError(t, err)
	assert.Empty(t, inverted)
}

func testRollback(t *testing.T, store library.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		if err := tx.Books().Insert(ctx, NewBook("Ghost", 2, 2000)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Books().FindByTitle(ctx, "Ghost")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
}

// testLockSerializes runs concurrent read-check-decrement transactions
// against one row and expects exactly one of them to see quantity above 1.
func testLockSerializes(t *testing.T, store library.Store) {
	ctx := context.Background()
	require.NoError(t, store.Books().Insert(ctx, NewBook("Contended", 2, 2000)))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		decrement int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				took := false
				err := store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
					b, err := tx.Books().LockByTitle(ctx, "Contended")
					if err != nil {
						return err
					}
					if b.Quantity <= 1 {
						return nil
					}
					b.Quantity--
					took = true
					return tx.Books().Update(ctx, b)
				})
				if errors.Is(err, library.ErrConflict) {
					continue
				}
				assert.NoError(t, err)
				if took && err == nil {
					mu.Lock()
					decrement++
					mu.Unlock()
				}
				return
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, decrement)
	b, err := store.Books().FindByTitle(ctx, "Contended")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Quantity)
}

// testRenameWaitsForShare opens a loan under a shared member lock while a
// rename of the same member is pending. The rename must wait for the loan to
// commit and then carry it over to the new name.
func testRenameWaitsForShare(t *testing.T, store library.Store) {
	ctx := context.Background()
	book := NewBook("Dune", 4, 1965)
	alice := NewMember("Alice")
	require.NoError(t, store.Books().Insert(ctx, book))
	require.NoError(t, store.Members().Insert(ctx, alice))

	shared := make(chan struct{})
	release := make(chan struct{})
	borrowDone := make(chan error, 1)
	go func() {
		borrowDone <- store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
			member, err := tx.Members().ShareByName(ctx, "Alice")
			close(shared)
			if err != nil {
				return err
			}
			<-release

			day := library.Day(time.Now())
			return tx.Borrowings().Insert(ctx, library.Borrowing{
				ID:         uuid.New(),
				BookID:     book.ID,
				MemberID:   member.ID,
				BookName:   book.Title,
				MemberName: member.Name,
				BorrowDate: day,
				DueDate:    day.Add(library.LoanPeriod),
				Status:     library.LoanOpen,
			})
		})
	}()
	<-shared

	renameDone := make(chan error, 1)
	go func() {
		renameDone <- store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
			member, err := tx.Members().LockByName(ctx, "Alice")
			if err != nil {
				return err
			}
			member.Name = "Alice B"
			if err := tx.Members().Update(ctx, member); err != nil {
				return err
			}
			return tx.Borrowings().RenameMember(ctx, member.ID, member.Name)
		})
	}()

	select {
	case err := <-renameDone:
		t.Fatalf("rename finished while the member was shared: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-borrowDone)
	require.NoError(t, <-renameDone)

	loan, err := store.Borrowings().LockOpen(ctx, "Dune", "Alice B")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, loan.MemberID)
	_, err = store.Borrowings().LockOpen(ctx, "Dune", "Alice")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
}

func titles(books []library.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}
