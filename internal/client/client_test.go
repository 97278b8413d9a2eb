package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/library"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBorrow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/borrowing/borrow", r.URL.Path)
		assert.Equal(t, "Scary Nights", r.URL.Query().Get("bookName"))
		assert.Equal(t, "Alice", r.URL.Query().Get("memberName"))
		_, _ = io.WriteString(w, "Borrowing successful.")
	})

	msg, err := c.Borrow(context.Background(), "Scary Nights", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Borrowing successful.", msg)
}

func TestReturn_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Borrowing record not found for the given book and member.", http.StatusBadRequest)
	})

	_, err := c.Return(context.Background(), "Dune", "Bob")
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Borrowing record not found for the given book and member.", se.Body)
}

func TestGetBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/The Hobbit", r.URL.Path)
		_, _ = io.WriteString(w, `{"title":"The Hobbit","author":"Tolkien","quantity":4,"publishedYear":1937}`)
	})

	book, err := c.GetBook(context.Background(), "The Hobbit")
	require.NoError(t, err)
	assert.Equal(t, 4, book.Quantity)
	assert.Equal(t, 1937, book.PublishedYear)
}

func TestReports(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/borrowing/report/currently-borrowed":
			assert.Equal(t, "2024-03-10", r.URL.Query().Get("currentDate"))
			_, _ = io.WriteString(w, `[["Dune","Alice"]]`)
		case "/borrowing/report/overdue":
			_, _ = io.WriteString(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	loans, err := c.CurrentlyBorrowed(ctx, time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []library.Loan{{Title: "Dune", MemberName: "Alice"}}, loans)

	loans, err = c.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestAddBookSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"title":"Dune"`)
		_, _ = io.WriteString(w, "Book added successfully!")
	})

	msg, err := c.AddBook(context.Background(), library.Book{Title: "Dune", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "Book added successfully!", msg)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	})
	ctx := context.Background()

	for range 5 {
		_, err := c.Overdue(ctx)
		require.Error(t, err)
	}

	_, err := c.Overdue(ctx)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(5), hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Sorry!! This book is currently not available for borrowing.", http.StatusBadRequest)
	})
	ctx := context.Background()

	for range 10 {
		_, err := c.Borrow(ctx, "Rare", "Bob")
		require.True(t, IsClientError(err))
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}
