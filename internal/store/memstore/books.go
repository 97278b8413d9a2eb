package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"libradesk/internal/library"
	"libradesk/internal/textmatch"
)

type bookRepo struct {
	repos
}

func (r *bookRepo) List(context.Context) ([]library.Book, error) {
	it, err := r.read().Get(tableBooks, "id")
	if err != nil {
		return nil, storeFailure("list books", err)
	}

	var books []library.Book
	for obj := it.Next(); obj != nil; obj = it.Next() {
		books = append(books, obj.(*bookRecord).book())
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (r *bookRepo) FindByTitle(_ context.Context, title string) (library.Book, error) {
	return findBook(r.read(), "title", title)
}

func (r *bookRepo) LockByTitle(ctx context.Context, title string) (library.Book, error) {
	return r.FindByTitle(ctx, title)
}

func (r *bookRepo) LockByID(_ context.Context, id uuid.UUID) (library.Book, error) {
	return findBook(r.read(), "id", id.String())
}

func (r *bookRepo) Search(ctx context.Context, filter library.BookFilter) ([]library.Book, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	books := all[:0]
	for _, b := range all {
		if filter.HasYearRange() && (b.PublishedYear < *filter.YearFrom || b.PublishedYear > *filter.YearTo) {
			continue
		}
		books = append(books, b)
	}

	if filter.Title != "" {
		books = textmatch.Rank(books, filter.Title, func(b library.Book) string { return b.Title })
	}
	if filter.Author != "" {
		books = textmatch.Rank(books, filter.Author, func(b library.Book) string { return b.Author })
	}
	return books, nil
}

func (r *bookRepo) Insert(_ context.Context, book library.Book) error {
	return r.write(func(txn *memdb.Txn) error {
		if err := ensureFree(txn, tableBooks, "title", book.Title, ""); err != nil {
			return err
		}
		if err := txn.Insert(tableBooks, toBookRecord(book)); err != nil {
			return storeFailure("insert book", err)
		}
		return nil
	})
}

func (r *bookRepo) Update(_ context.Context, book library.Book) error {
	return r.write(func(txn *memdb.Txn) error {
		if _, err := findBook(txn, "id", book.ID.String()); err != nil {
			return err
		}
		if err := ensureFree(txn, tableBooks, "title", book.Title, book.ID.String()); err != nil {
			return err
		}
		if err := txn.Insert(tableBooks, toBookRecord(book)); err != nil {
			return storeFailure("update book", err)
		}
		return nil
	})
}

func (r *bookRepo) DeleteByTitle(_ context.Context, title string) error {
	return r.write(func(txn *memdb.Txn) error {
		obj, err := txn.First(tableBooks, "title", title)
		if err != nil {
			return storeFailure("find book", err)
		}
		if obj == nil {
			return library.ErrRecordNotFound
		}

		rec := obj.(*bookRecord)
		if err := ensureUnreferenced(txn, "book_id", rec.ID); err != nil {
			return err
		}
		if err := txn.Delete(tableBooks, rec); err != nil {
			return storeFailure("delete book", err)
		}
		return nil
	})
}

func findBook(txn *memdb.Txn, index, value string) (library.Book, error) {
	obj, err := txn.First(tableBooks, index, value)
	if err != nil {
		return library.Book{}, storeFailure("find book", err)
	}
	if obj == nil {
		return library.Book{}, library.ErrRecordNotFound
	}
	return obj.(*bookRecord).book(), nil
}

// ensureFree fails with ErrDuplicateKey when another row than selfID already
// holds key in the unique index. memdb itself does not reject duplicates on
// secondary indexes.
func ensureFree(txn *memdb.Txn, table, index, key, selfID string) error {
	obj, err := txn.First(table, index, key)
	if err != nil {
		return storeFailure("check "+index, err)
	}
	if obj == nil {
		return nil
	}

	var id string
	switch rec := obj.(type) {
	case *bookRecord:
		id = rec.ID
	case *memberRecord:
		id = rec.ID
	}
	if id == selfID {
		return nil
	}
	return library.ErrDuplicateKey
}

func ensureUnreferenced(txn *memdb.Txn, index, id string) error {
	obj, err := txn.First(tableBorrowings, index, id)
	if err != nil {
		return storeFailure("check borrowings", err)
	}
	if obj != nil {
		return library.ErrInUse
	}
	return nil
}
