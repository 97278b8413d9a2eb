package sqlstore

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/library"
)

const tableBorrowings = "borrowings"

var borrowingColumns = []any{
	"id", "book_id", "member_id", "book_name", "member_name",
	"borrow_date", "due_date", "return_date", "status",
}

type borrowingRow struct {
	ID         uuid.UUID  `db:"id"`
	BookID     uuid.UUID  `db:"book_id"`
	MemberID   uuid.UUID  `db:"member_id"`
	BookName   string     `db:"book_name"`
	MemberName string     `db:"member_name"`
	BorrowDate time.Time  `db:"borrow_date"`
	DueDate    time.Time  `db:"due_date"`
	ReturnDate *time.Time `db:"return_date"`
	Status     string     `db:"status"`
}

func (r borrowingRow) borrowing() library.Borrowing {
	b := library.Borrowing{
		ID:         r.ID,
		BookID:     r.BookID,
		MemberID:   r.MemberID,
		BookName:   r.BookName,
		MemberName: r.MemberName,
		BorrowDate: r.BorrowDate.UTC(),
		DueDate:    r.DueDate.UTC(),
		Status:     library.LoanStatus(r.Status),
	}
	if r.ReturnDate != nil {
		rd := r.ReturnDate.UTC()
		b.ReturnDate = &rd
	}
	return b
}

type loanRow struct {
	Title      string `db:"book_name"`
	MemberName string `db:"member_name"`
}

type borrowingRepo struct {
	conn
}

func (r *borrowingRepo) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", r.flavor.system()), attribute.String("db.sql.table", tableBorrowings))
	return tracer.Start(ctx, "borrowings."+op, trace.WithAttributes(attrs...))
}

func (r *borrowingRepo) Insert(ctx context.Context, b library.Borrowing) (err error) {
	ctx, span := r.span(ctx, "insert", attribute.String("borrowing.id", b.ID.String()))
	defer func() { endSpan(span, err); span.End() }()

	_, err = r.exec(ctx, r.dialect.Insert(tableBorrowings).Prepared(true).Rows(goqu.Record{
		"id":          b.ID,
		"book_id":     b.BookID,
		"member_id":   b.MemberID,
		"book_name":   b.BookName,
		"member_name": b.MemberName,
		"borrow_date": b.BorrowDate,
		"due_date":    b.DueDate,
		"return_date": nullableTime(b.ReturnDate),
		"status":      string(b.Status),
	}))
	return err
}

func (r *borrowingRepo) LockOpen(ctx context.Context, bookName, memberName string) (b library.Borrowing, err error) {
	ctx, span := r.span(ctx, "lock_open",
		attribute.String("book.title", bookName),
		attribute.String("member.name", memberName),
	)
	defer func() { endSpan(span, err); span.End() }()

	ds := r.dialect.From(tableBorrowings).Select(borrowingColumns...).
		Where(goqu.Ex{
			"book_name":   bookName,
			"member_name": memberName,
			"status":      string(library.LoanOpen),
		}).
		Order(goqu.C("borrow_date").Asc(), goqu.C("id").Asc()).
		Limit(1)

	var row borrowingRow
	if err := r.get(ctx, &row, r.locking(ds)); err != nil {
		return library.Borrowing{}, err
	}
	return row.borrowing(), nil
}

func (r *borrowingRepo) Update(ctx context.Context, b library.Borrowing) (err error) {
	ctx, span := r.span(ctx, "update", attribute.String("borrowing.id", b.ID.String()))
	defer func() { endSpan(span, err); span.End() }()

	n, err := r.exec(ctx, r.dialect.Update(tableBorrowings).Prepared(true).
		Set(goqu.Record{
			"book_name":   b.BookName,
			"member_name": b.MemberName,
			"due_date":    b.DueDate,
			"return_date": nullableTime(b.ReturnDate),
			"status":      string(b.Status),
		}).
		Where(goqu.C("id").Eq(b.ID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrRecordNotFound
	}
	return nil
}

func (r *borrowingRepo) OpenDueAfter(ctx context.Context, day time.Time) ([]library.Loan, error) {
	return r.openLoans(ctx, "open_due_after", goqu.C("due_date").Gt(day))
}

func (r *borrowingRepo) OpenDueBefore(ctx context.Context, day time.Time) ([]library.Loan, error) {
	return r.openLoans(ctx, "open_due_before", goqu.C("due_date").Lt(day))
}

func (r *borrowingRepo) openLoans(ctx context.Context, op string, due exp.Expression) (loans []library.Loan, err error) {
	ctx, span := r.span(ctx, op)
	defer func() { endSpan(span, err); span.End() }()

	ds := r.dialect.From(tableBorrowings).Select("book_name", "member_name").
		Where(goqu.C("status").Eq(string(library.LoanOpen)), due).
		Order(goqu.C("due_date").Asc(), goqu.C("book_name").Asc())

	var rows []loanRow
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	loans = make([]library.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, library.Loan{Title: row.Title, MemberName: row.MemberName})
	}
	span.SetAttributes(attribute.Int("loans.count", len(loans)))
	return loans, nil
}

func (r *borrowingRepo) RenameBook(ctx context.Context, bookID uuid.UUID, title string) (err error) {
	ctx, span := r.span(ctx, "rename_book", attribute.String("book.id", bookID.String()))
	defer func() { endSpan(span, err); span.End() }()

	_, err = r.exec(ctx, r.dialect.Update(tableBorrowings).Prepared(true).
		Set(goqu.Record{"book_name": title}).
		Where(goqu.C("book_id").Eq(bookID)))
	return err
}

func (r *borrowingRepo) RenameMember(ctx context.Context, memberID uuid.UUID, name string) (err error) {
	ctx, span := r.span(ctx, "rename_member", attribute.String("member.id", memberID.String()))
	defer func() { endSpan(span, err); span.End() }()

	_, err = r.exec(ctx, r.dialect.Update(tableBorrowings).Prepared(true).
		Set(goqu.Record{"member_name": name}).
		Where(goqu.C("member_id").Eq(memberID)))
	return err
}

// nullableTime turns a nil pointer into SQL NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
