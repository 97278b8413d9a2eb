package circulation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libradesk/internal/library"
)

func TestProperty_BorrowRefusesLastCopy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		f := newFixture(t)
		quantity := rapid.IntRange(0, 1).Draw(t, "quantity")
		f.addBook(t, "Single", quantity)
		f.addMember(t, "Alice")

		_, err := f.svc.Borrow(ctx, "Single", "Alice")
		assert.ErrorIs(t, err, library.ErrBookNotAvailable)
		assert.Equal(t, quantity, f.quantity(t, "Single"))
	})
}

func TestProperty_BorrowDecrementsAndSetsDueDate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		f := newFixture(t)
		quantity := rapid.IntRange(2, 1000).Draw(t, "quantity")
		f.now = f.now.AddDate(0, 0, rapid.IntRange(-3650, 3650).Draw(t, "dayOffset"))
		f.addBook(t, "Plenty", quantity)
		f.addMember(t, "Alice")

		borrowing, err := f.svc.Borrow(ctx, "Plenty", "Alice")
		require.NoError(t, err)
		assert.Equal(t, quantity-1, f.quantity(t, "Plenty"))
		assert.Equal(t, library.Day(f.now), borrowing.BorrowDate)
		assert.Equal(t, borrowing.BorrowDate.AddDate(0, 0, 14), borrowing.DueDate)
	})
}

func TestProperty_ReturnIncrements(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		f := newFixture(t)
		quantity := rapid.IntRange(2, 1000).Draw(t, "quantity")
		f.addBook(t, "Plenty", quantity)
		f.addMember(t, "Alice")

		_, err := f.svc.Borrow(ctx, "Plenty", "Alice")
		require.NoError(t, err)
		before := f.quantity(t, "Plenty")

		f.now = f.now.AddDate(0, 0, rapid.IntRange(0, 60).Draw(t, "daysKept"))
		returned, err := f.svc.Return(ctx, "Plenty", "Alice")
		require.NoError(t, err)
		assert.Equal(t, before+1, f.quantity(t, "Plenty"))
		require.NotNil(t, returned.ReturnDate)
		assert.Equal(t, library.Day(f.now), *returned.ReturnDate)
	})
}

// Any interleaving of borrows and returns keeps shelf copies plus open loans
// equal to the starting stock, and never lends the last copy.
func TestProperty_StockIsConserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		f := newFixture(t)
		stock := rapid.IntRange(1, 6).Draw(t, "stock")
		f.addBook(t, "Shared", stock)
		members := []string{"Alice", "Bob", "Carol"}
		for _, m := range members {
			f.addMember(t, m)
		}

		open := map[string]int{}
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for range steps {
			member := rapid.SampledFrom(members).Draw(t, "member")
			if rapid.Bool().Draw(t, "borrow") {
				_, err := f.svc.Borrow(ctx, "Shared", member)
				if err == nil {
					open[member]++
				} else {
					assert.ErrorIs(t, err, library.ErrBookNotAvailable)
				}
			} else {
				_, err := f.svc.Return(ctx, "Shared", member)
				if err == nil {
					open[member]--
				} else {
					assert.ErrorIs(t, err, library.ErrRecordNotFound)
					assert.Zero(t, open[member])
				}
			}

			lent := 0
			for _, n := range open {
				lent += n
			}
			shelf := f.quantity(t, "Shared")
			assert.Equal(t, stock, shelf+lent)
			assert.GreaterOrEqual(t, shelf, min(stock, 1))
		}
	})
}
