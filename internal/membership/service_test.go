package membership_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/library"
	"libradesk/internal/membership"
	"libradesk/internal/store/memstore"
	"libradesk/internal/store/storetest"
)

func newService(t *testing.T) (membership.Service, library.Store) {
	t.Helper()
	store, err := memstore.New()
	require.NoError(t, err)
	return membership.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func lend(t *testing.T, store library.Store, book library.Book, member library.Member) {
	t.Helper()
	day := library.Day(time.Now())
	require.NoError(t, store.Borrowings().Insert(context.Background(), library.Borrowing{
		ID: uuid.New(), BookID: book.ID, MemberID: member.ID,
		BookName: book.Title, MemberName: member.Name,
		BorrowDate: day, DueDate: day.Add(library.LoanPeriod), Status: library.LoanOpen,
	}))
}

func TestAddAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Add(ctx, library.Member{Name: "Alice", Email: "alice@example.com"}))

	got, err := svc.Get(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.NotEqual(t, uuid.Nil, got.ID)
}

func TestAdd_DefaultsEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Add(ctx, library.Member{Name: "Bob"}))

	got, err := svc.Get(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "No Email", got.Email)
}

func TestAdd_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	err := svc.Add(ctx, library.Member{Email: "x@example.com"})
	assert.ErrorIs(t, err, library.ErrInvalidInput)
	assert.EqualError(t, err, "!!! Member name is required !!!")

	require.NoError(t, svc.Add(ctx, library.Member{Name: "Carol"}))
	err = svc.Add(ctx, library.Member{Name: "Carol"})
	assert.ErrorIs(t, err, library.ErrDuplicateKey)
	assert.EqualError(t, err, "This member already exists. Please use the update operation.")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	members, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, svc.Add(ctx, library.Member{Name: "Zed"}))
	require.NoError(t, svc.Add(ctx, library.Member{Name: "Amy"}))

	members, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	require.NoError(t, svc.Add(ctx, library.Member{Name: "Dana", Email: "old@example.com"}))

	created, err := svc.Update(ctx, "Dana", membership.MemberPatch{Email: "new@example.com"}, false)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := svc.Get(ctx, "Dana")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
}

func TestUpdate_MissingMember(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Update(ctx, "Eve", membership.MemberPatch{Email: "eve@example.com"}, false)
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
	assert.Contains(t, err.Error(), "confirm=true")

	created, err := svc.Update(ctx, "Eve", membership.MemberPatch{Email: "eve@example.com"}, true)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := svc.Get(ctx, "Eve")
	require.NoError(t, err)
	assert.Equal(t, "eve@example.com", got.Email)
}

func TestUpdate_RenameFollowsBorrowings(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	book := storetest.NewBook("Dune", 3, 1965)
	member := storetest.NewMember("Frank")
	require.NoError(t, store.Books().Insert(ctx, book))
	require.NoError(t, store.Members().Insert(ctx, member))
	lend(t, store, book, member)

	_, err := svc.Update(ctx, "Frank", membership.MemberPatch{Name: "Francis"}, false)
	require.NoError(t, err)

	loan, err := store.Borrowings().LockOpen(ctx, "Dune", "Francis")
	require.NoError(t, err)
	assert.Equal(t, member.ID, loan.MemberID)

	_, err = store.Borrowings().LockOpen(ctx, "Dune", "Frank")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
}

func TestUpdate_RetriesDeadlockVictim(t *testing.T) {
	ctx := context.Background()
	store, err := memstore.New()
	require.NoError(t, err)
	require.NoError(t, store.Members().Insert(ctx, storetest.NewMember("Alice")))

	conflicting := storetest.WithConflicts(store, 1)
	svc := membership.NewService(conflicting, slog.New(slog.NewTextHandler(io.Discard, nil)),
		membership.WithRetry(library.RetryPolicy{MaxTries: 3, Interval: time.Millisecond}))

	created, err := svc.Update(ctx, "Alice", membership.MemberPatch{Name: "Alice B"}, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, conflicting.Attempts())

	_, err = store.Members().FindByName(ctx, "Alice B")
	require.NoError(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	require.NoError(t, svc.Add(ctx, library.Member{Name: "Gus"}))

	require.NoError(t, svc.Delete(ctx, "Gus"))

	err := svc.Delete(ctx, "Gus")
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
	assert.EqualError(t, err, "!!! The member you are trying to delete does not exist in the DB. !!!")

	book := storetest.NewBook("Emma", 2, 1815)
	member := storetest.NewMember("Hana")
	require.NoError(t, store.Books().Insert(ctx, book))
	require.NoError(t, store.Members().Insert(ctx, member))
	lend(t, store, book, member)

	err = svc.Delete(ctx, "Hana")
	assert.ErrorIs(t, err, library.ErrInUse)
}
