package memstore

import (
	"context"
	"sort"

	"github.com/hashicorp/go-memdb"

	"libradesk/internal/library"
)

type memberRepo struct {
	repos
}

func (r *memberRepo) List(context.Context) ([]library.Member, error) {
	it, err := r.read().Get(tableMembers, "id")
	if err != nil {
		return nil, storeFailure("list members", err)
	}

	var members []library.Member
	for obj := it.Next(); obj != nil; obj = it.Next() {
		members = append(members, obj.(*memberRecord).member())
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (r *memberRepo) FindByName(_ context.Context, name string) (library.Member, error) {
	return findMember(r.read(), "name", name)
}

// Lock and share reads need nothing extra: memdb admits one writer at a time.
func (r *memberRepo) LockByName(ctx context.Context, name string) (library.Member, error) {
	return r.FindByName(ctx, name)
}

func (r *memberRepo) ShareByName(ctx context.Context, name string) (library.Member, error) {
	return r.FindByName(ctx, name)
}

func (r *memberRepo) Insert(_ context.Context, member library.Member) error {
	return r.write(func(txn *memdb.Txn) error {
		if err := ensureFree(txn, tableMembers, "name", member.Name, ""); err != nil {
			return err
		}
		if err := txn.Insert(tableMembers, toMemberRecord(member)); err != nil {
			return storeFailure("insert member", err)
		}
		return nil
	})
}

func (r *memberRepo) Update(_ context.Context, member library.Member) error {
	return r.write(func(txn *memdb.Txn) error {
		if _, err := findMember(txn, "id", member.ID.String()); err != nil {
			return err
		}
		if err := ensureFree(txn, tableMembers, "name", member.Name, member.ID.String()); err != nil {
			return err
		}
		if err := txn.Insert(tableMembers, toMemberRecord(member)); err != nil {
			return storeFailure("update member", err)
		}
		return nil
	})
}

func (r *memberRepo) DeleteByName(_ context.Context, name string) error {
	return r.write(func(txn *memdb.Txn) error {
		obj, err := txn.First(tableMembers, "name", name)
		if err != nil {
			return storeFailure("find member", err)
		}
		if obj == nil {
			return library.ErrRecordNotFound
		}

		rec := obj.(*memberRecord)
		if err := ensureUnreferenced(txn, "member_id", rec.ID); err != nil {
			return err
		}
		if err := txn.Delete(tableMembers, rec); err != nil {
			return storeFailure("delete member", err)
		}
		return nil
	})
}

func findMember(txn *memdb.Txn, index, value string) (library.Member, error) {
	obj, err := txn.First(tableMembers, index, value)
	if err != nil {
		return library.Member{}, storeFailure("find member", err)
	}
	if obj == nil {
		return library.Member{}, library.ErrRecordNotFound
	}
	return obj.(*memberRecord).member(), nil
}
