package sqlstore

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/library"
	"libradesk/internal/textmatch"
)

const tableBooks = "books"

var bookColumns = []any{"id", "title", "author", "quantity", "published_year"}

type bookRow struct {
	ID            uuid.UUID `db:"id"`
	Title         string    `db:"title"`
	Author        string    `db:"author"`
	Quantity      int       `db:"quantity"`
	PublishedYear int       `db:"published_year"`
}

func (r bookRow) book() library.Book {
	return library.Book{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.Author,
		Quantity:      r.Quantity,
		PublishedYear: r.PublishedYear,
	}
}

func bookRecord(b library.Book) goqu.Record {
	return goqu.Record{
		"id":             b.ID,
		"title":          b.Title,
		"author":         b.Author,
		"quantity":       b.Quantity,
		"published_year": b.PublishedYear,
	}
}

type bookRepo struct {
	conn
}

func (r *bookRepo) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", r.flavor.system()), attribute.String("db.sql.table", tableBooks))
	return tracer.Start(ctx, "books."+op, trace.WithAttributes(attrs...))
}

func (r *bookRepo) List(ctx context.Context) (books []library.Book, err error) {
	ctx, span := r.span(ctx, "list")
	defer func() { endSpan(span, err); span.End() }()

	var rows []bookRow
	ds := r.dialect.From(tableBooks).Select(bookColumns...).Order(goqu.C("title").Asc())
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	return toBooks(rows), nil
}

func (r *bookRepo) FindByTitle(ctx context.Context, title string) (book library.Book, err error) {
	ctx, span := r.span(ctx, "find_by_title", attribute.String("book.title", title))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("title").Eq(title)))
}

func (r *bookRepo) LockByTitle(ctx context.Context, title string) (book library.Book, err error) {
	ctx, span := r.span(ctx, "lock_by_title", attribute.String("book.title", title))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.locking(r.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("title").Eq(title))))
}

func (r *bookRepo) LockByID(ctx context.Context, id uuid.UUID) (book library.Book, err error) {
	ctx, span := r.span(ctx, "lock_by_id", attribute.String("book.id", id.String()))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.locking(r.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").Eq(id))))
}

func (r *bookRepo) one(ctx context.Context, ds *goqu.SelectDataset) (library.Book, error) {
	var row bookRow
	if err := r.get(ctx, &row, ds); err != nil {
		return library.Book{}, err
	}
	return row.book(), nil
}

// Search matches titles and authors fuzzily. Postgres ranks with pg_trgm;
// SQLite narrows by year in SQL and ranks the rest in Go.
func (r *bookRepo) Search(ctx context.Context, filter library.BookFilter) (books []library.Book, err error) {
	ctx, span := r.span(ctx, "search",
		attribute.String("search.title", filter.Title),
		attribute.String("search.author", filter.Author),
		attribute.Bool("search.year_range", filter.HasYearRange()),
	)
	defer func() { endSpan(span, err); span.End() }()

	ds := r.dialect.From(tableBooks).Select(bookColumns...)
	if filter.HasYearRange() {
		ds = ds.Where(goqu.C("published_year").Between(goqu.Range(*filter.YearFrom, *filter.YearTo)))
	}

	if r.flavor.isPostgres() {
		ds = trigramMatch(ds, "title", filter.Title)
		ds = trigramMatch(ds, "author", filter.Author)
	}
	ds = ds.OrderAppend(goqu.C("title").Asc())

	var rows []bookRow
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	books = toBooks(rows)

	if !r.flavor.isPostgres() {
		if filter.Title != "" {
			books = textmatch.Rank(books, filter.Title, func(b library.Book) string { return b.Title })
		}
		if filter.Author != "" {
			books = textmatch.Rank(books, filter.Author, func(b library.Book) string { return b.Author })
		}
	}
	return books, nil
}

// trigramMatch keeps rows whose column contains term, contains it once
// everything but letters and digits is removed from both, or is
// pg_trgm-similar to it, best matches first.
func trigramMatch(ds *goqu.SelectDataset, column, term string) *goqu.SelectDataset {
	if term == "" {
		return ds
	}
	pattern := "%" + term + "%"
	return ds.Where(goqu.Or(
		goqu.C(column).ILike(pattern),
		goqu.L(column+" % ?", term),
		goqu.L("regexp_replace("+column+", '[^a-zA-Z0-9]+', '', 'g') ILIKE ('%' || regexp_replace(?, '[^a-zA-Z0-9]+', '', 'g') || '%')", term),
	)).OrderAppend(goqu.L("similarity("+column+", ?)", term).Desc())
}

func (r *bookRepo) Insert(ctx context.Context, book library.Book) (err error) {
	ctx, span := r.span(ctx, "insert", attribute.String("book.title", book.Title))
	defer func() { endSpan(span, err); span.End() }()

	_, err = r.exec(ctx, r.dialect.Insert(tableBooks).Prepared(true).Rows(bookRecord(book)))
	return err
}

func (r *bookRepo) Update(ctx context.Context, book library.Book) (err error) {
	ctx, span := r.span(ctx, "update", attribute.String("book.id", book.ID.String()))
	defer func() { endSpan(span, err); span.End() }()

	rec := bookRecord(book)
	delete(rec, "id")
	n, err := r.exec(ctx, r.dialect.Update(tableBooks).Prepared(true).Set(rec).Where(goqu.C("id").Eq(book.ID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrRecordNotFound
	}
	return nil
}

func (r *bookRepo) DeleteByTitle(ctx context.Context, title string) (err error) {
	ctx, span := r.span(ctx, "delete_by_title", attribute.String("book.title", title))
	defer func() { endSpan(span, err); span.End() }()

	n, err := r.exec(ctx, r.dialect.Delete(tableBooks).Prepared(true).Where(goqu.C("title").Eq(title)))
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrRecordNotFound
	}
	return nil
}

func toBooks(rows []bookRow) []library.Book {
	books := make([]library.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.book())
	}
	return books
}
