package memstore

import (
	"time"

	"github.com/google/uuid"

	"libradesk/internal/library"
)

// memdb string indexes need string fields, so ids are stored in text form.

type bookRecord struct {
	ID            string
	Title         string
	Author        string
	Quantity      int
	PublishedYear int
}

func toBookRecord(b library.Book) *bookRecord {
	return &bookRecord{
		ID:            b.ID.String(),
		Title:         b.Title,
		Author:        b.Author,
		Quantity:      b.Quantity,
		PublishedYear: b.PublishedYear,
	}
}

func (r *bookRecord) book() library.Book {
	return library.Book{
		ID:            uuid.MustParse(r.ID),
		Title:         r.Title,
		Author:        r.Author,
		Quantity:      r.Quantity,
		PublishedYear: r.PublishedYear,
	}
}

type memberRecord struct {
	ID    string
	Name  string
	Email string
}

func toMemberRecord(m library.Member) *memberRecord {
	return &memberRecord{ID: m.ID.String(), Name: m.Name, Email: m.Email}
}

func (r *memberRecord) member() library.Member {
	return library.Member{ID: uuid.MustParse(r.ID), Name: r.Name, Email: r.Email}
}

type borrowingRecord struct {
	ID         string
	BookID     string
	MemberID   string
	BookName   string
	MemberName string
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     string
}

func toBorrowingRecord(b library.Borrowing) *borrowingRecord {
	rec := &borrowingRecord{
		ID:         b.ID.String(),
		BookID:     b.BookID.String(),
		MemberID:   b.MemberID.String(),
		BookName:   b.BookName,
		MemberName: b.MemberName,
		BorrowDate: b.BorrowDate,
		DueDate:    b.DueDate,
		Status:     string(b.Status),
	}
	if b.ReturnDate != nil {
		rd := *b.ReturnDate
		rec.ReturnDate = &rd
	}
	return rec
}

func (r *borrowingRecord) borrowing() library.Borrowing {
	b := library.Borrowing{
		ID:         uuid.MustParse(r.ID),
		BookID:     uuid.MustParse(r.BookID),
		MemberID:   uuid.MustParse(r.MemberID),
		BookName:   r.BookName,
		MemberName: r.MemberName,
		BorrowDate: r.BorrowDate,
		DueDate:    r.DueDate,
		Status:     library.LoanStatus(r.Status),
	}
	if r.ReturnDate != nil {
		rd := *r.ReturnDate
		b.ReturnDate = &rd
	}
	return b
}
