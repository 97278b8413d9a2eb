package sqlstore

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/library"
)

const tableMembers = "members"

var memberColumns = []any{"id", "name", "email"}

type memberRow struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
}

func (r memberRow) member() library.Member {
	return library.Member{ID: r.ID, Name: r.Name, Email: r.Email}
}

type memberRepo struct {
	conn
}

func (r *memberRepo) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", r.flavor.system()), attribute.String("db.sql.table", tableMembers))
	return tracer.Start(ctx, "members."+op, trace.WithAttributes(attrs...))
}

func (r *memberRepo) List(ctx context.Context) (members []library.Member, err error) {
	ctx, span := r.span(ctx, "list")
	defer func() { endSpan(span, err); span.End() }()

	var rows []memberRow
	ds := r.dialect.From(tableMembers).Select(memberColumns...).Order(goqu.C("name").Asc())
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	members = make([]library.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.member())
	}
	return members, nil
}

func (r *memberRepo) FindByName(ctx context.Context, name string) (member library.Member, err error) {
	ctx, span := r.span(ctx, "find_by_name", attribute.String("member.name", name))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.byName(name))
}

func (r *memberRepo) LockByName(ctx context.Context, name string) (member library.Member, err error) {
	ctx, span := r.span(ctx, "lock_by_name", attribute.String("member.name", name))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.locking(r.byName(name)))
}

func (r *memberRepo) ShareByName(ctx context.Context, name string) (member library.Member, err error) {
	ctx, span := r.span(ctx, "share_by_name", attribute.String("member.name", name))
	defer func() { endSpan(span, err); span.End() }()

	return r.one(ctx, r.sharing(r.byName(name)))
}

func (r *memberRepo) byName(name string) *goqu.SelectDataset {
	return r.dialect.From(tableMembers).Select(memberColumns...).Where(goqu.C("name").Eq(name))
}

func (r *memberRepo) one(ctx context.Context, ds *goqu.SelectDataset) (library.Member, error) {
	var row memberRow
	if err := r.get(ctx, &row, ds); err != nil {
		return library.Member{}, err
	}
	return row.member(), nil
}

func (r *memberRepo) Insert(ctx context.Context, member library.Member) (err error) {
	ctx, span := r.span(ctx, "insert", attribute.String("member.name", member.Name))
	defer func() { endSpan(span, err); span.End() }()

	_, err = r.exec(ctx, r.dialect.Insert(tableMembers).Prepared(true).Rows(goqu.Record{
		"id":    member.ID,
		"name":  member.Name,
		"email": member.Email,
	}))
	return err
}

func (r *memberRepo) Update(ctx context.Context, member library.Member) (err error) {
	ctx, span := r.span(ctx, "update", attribute.String("member.id", member.ID.String()))
	defer func() { endSpan(span, err); span.End() }()

	n, err := r.exec(ctx, r.dialect.Update(tableMembers).Prepared(true).
		Set(goqu.Record{"name": member.Name, "email": member.Email}).
		Where(goqu.C("id").Eq(member.ID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrRecordNotFound
	}
	return nil
}

func (r *memberRepo) DeleteByName(ctx context.Context, name string) (err error) {
	ctx, span := r.span(ctx, "delete_by_name", attribute.String("member.name", name))
	defer func() { endSpan(span, err); span.End() }()

	n, err := r.exec(ctx, r.dialect.Delete(tableMembers).Prepared(true).Where(goqu.C("name").Eq(name)))
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrRecordNotFound
	}
	return nil
}
