package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"libradesk/internal/library"
)

type borrowingRepo struct {
	repos
}

func (r *borrowingRepo) Insert(_ context.Context, b library.Borrowing) error {
	return r.write(func(txn *memdb.Txn) error {
		if err := txn.Insert(tableBorrowings, toBorrowingRecord(b)); err != nil {
			return storeFailure("insert borrowing", err)
		}
		return nil
	})
}

func (r *borrowingRepo) LockOpen(_ context.Context, bookName, memberName string) (library.Borrowing, error) {
	it, err := r.read().Get(tableBorrowings, "loan", bookName, memberName, string(library.LoanOpen))
	if err != nil {
		return library.Borrowing{}, storeFailure("find borrowing", err)
	}

	var oldest *borrowingRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*borrowingRecord)
		if oldest == nil || rec.BorrowDate.Before(oldest.BorrowDate) ||
			(rec.BorrowDate.Equal(oldest.BorrowDate) && rec.ID < oldest.ID) {
			oldest = rec
		}
	}
	if oldest == nil {
		return library.Borrowing{}, library.ErrRecordNotFound
	}
	return oldest.borrowing(), nil
}

func (r *borrowingRepo) Update(_ context.Context, b library.Borrowing) error {
	return r.write(func(txn *memdb.Txn) error {
		obj, err := txn.First(tableBorrowings, "id", b.ID.String())
		if err != nil {
			return storeFailure("find borrowing", err)
		}
		if obj == nil {
			return library.ErrRecordNotFound
		}
		if err := txn.Insert(tableBorrowings, toBorrowingRecord(b)); err != nil {
			return storeFailure("update borrowing", err)
		}
		return nil
	})
}

func (r *borrowingRepo) OpenDueAfter(_ context.Context, day time.Time) ([]library.Loan, error) {
	return r.openLoans(func(due time.Time) bool { return due.After(day) })
}

func (r *borrowingRepo) OpenDueBefore(_ context.Context, day time.Time) ([]library.Loan, error) {
	return r.openLoans(func(due time.Time) bool { return due.Before(day) })
}

func (r *borrowingRepo) openLoans(keep func(due time.Time) bool) ([]library.Loan, error) {
	it, err := r.read().Get(tableBorrowings, "status", string(library.LoanOpen))
	if err != nil {
		return nil, storeFailure("list borrowings", err)
	}

	var recs []*borrowingRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*borrowingRecord)
		if keep(rec.DueDate) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].DueDate.Equal(recs[j].DueDate) {
			return recs[i].DueDate.Before(recs[j].DueDate)
		}
		return recs[i].BookName < recs[j].BookName
	})

	loans := make([]library.Loan, 0, len(recs))
	for _, rec := range recs {
		loans = append(loans, library.Loan{Title: rec.BookName, MemberName: rec.MemberName})
	}
	return loans, nil
}

func (r *borrowingRepo) RenameBook(_ context.Context, bookID uuid.UUID, title string) error {
	return r.rename("book_id", bookID.String(), func(rec *borrowingRecord) { rec.BookName = title })
}

func (r *borrowingRepo) RenameMember(_ context.Context, memberID uuid.UUID, name string) error {
	return r.rename("member_id", memberID.String(), func(rec *borrowingRecord) { rec.MemberName = name })
}

func (r *borrowingRepo) rename(index, id string, apply func(rec *borrowingRecord)) error {
	return r.write(func(txn *memdb.Txn) error {
		it, err := txn.Get(tableBorrowings, index, id)
		if err != nil {
			return storeFailure("list borrowings", err)
		}

		// Collect first: modifying the table while iterating it is not allowed.
		var updated []*borrowingRecord
		for obj := it.Next(); obj != nil; obj = it.Next() {
			rec := *obj.(*borrowingRecord)
			apply(&rec)
			updated = append(updated, &rec)
		}
		for _, rec := range updated {
			if err := txn.Insert(tableBorrowings, rec); err != nil {
				return storeFailure("rename borrowing", err)
			}
		}
		return nil
	})
}
