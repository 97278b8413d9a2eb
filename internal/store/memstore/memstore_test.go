package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matryer/is"

	"libradesk/internal/library"
	"libradesk/internal/store/memstore"
	"libradesk/internal/store/storetest"
)

var ctx = context.Background()

func newStore(t *testing.T) library.Store {
	store, err := memstore.New()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestLockOpenPicksOldestLoan(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	book := storetest.NewBook("Dune", 5, 1965)
	member := storetest.NewMember("Bob")
	is.NoErr(store.Books().Insert(ctx, book))
	is.NoErr(store.Members().Insert(ctx, member))

	day := library.Day(time.Now())
	older := library.Borrowing{
		ID: uuid.New(), BookID: book.ID, MemberID: member.ID, BookName: book.Title, MemberName: member.Name,
		BorrowDate: day.AddDate(0, 0, -3), DueDate: day.AddDate(0, 0, 11), Status: library.LoanOpen,
	}
	newer := older
	newer.ID = uuid.New()
	newer.BorrowDate = day
	newer.DueDate = day.AddDate(0, 0, 14)

	is.NoErr(store.Borrowings().Insert(ctx, newer))
	is.NoErr(store.Borrowings().Insert(ctx, older))

	got, err := store.Borrowings().LockOpen(ctx, "Dune", "Bob")
	is.NoErr(err)
	is.Equal(got.ID, older.ID)
}

func TestWriteOutsideTxCommitsImmediately(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	is.NoErr(store.Books().Insert(ctx, storetest.NewBook("Solo", 2, 2000)))

	got, err := store.Books().FindByTitle(ctx, "Solo")
	is.NoErr(err)
	is.Equal(got.Quantity, 2)
}

func TestWithinTxSeesItsOwnWrites(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	err := store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		if err := tx.Members().Insert(ctx, storetest.NewMember("Carol")); err != nil {
			return err
		}
		m, err := tx.Members().FindByName(ctx, "Carol")
		if err != nil {
			return err
		}
		if m.Name != "Carol" {
			return errors.New("unexpected member")
		}
		return nil
	})
	is.NoErr(err)
}

func TestUpdateMissingBook(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	err := store.Books().Update(ctx, storetest.NewBook("Nowhere", 1, 2000))
	is.True(errors.Is(err, library.ErrRecordNotFound))
}
