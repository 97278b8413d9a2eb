// Package memstore is an in-memory library.Store backed by go-memdb. Write
// transactions are serialized by memdb's single writer lock, so borrows and
// returns are isolated the same way the SQL store's row locks isolate them.
package memstore

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"libradesk/internal/library"
)

const (
	tableBooks      = "books"
	tableMembers    = "members"
	tableBorrowings = "borrowings"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableBooks: {
				Name: tableBooks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"title": {
						Name:    "title",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Title"},
					},
				},
			},
			tableMembers: {
				Name: tableMembers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"name": {
						Name:    "name",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableBorrowings: {
				Name: tableBorrowings,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"book_id": {
						Name:    "book_id",
						Indexer: &memdb.StringFieldIndex{Field: "BookID"},
					},
					"member_id": {
						Name:    "member_id",
						Indexer: &memdb.StringFieldIndex{Field: "MemberID"},
					},
					"status": {
						Name:    "status",
						Indexer: &memdb.StringFieldIndex{Field: "Status"},
					},
					"loan": {
						Name: "loan",
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "BookName"},
								&memdb.StringFieldIndex{Field: "MemberName"},
								&memdb.StringFieldIndex{Field: "Status"},
							},
						},
					},
				},
			},
		},
	}
}

// Store keeps books, members and borrowings in memory.
type Store struct {
	db *memdb.MemDB
}

// New returns an empty store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Books() library.BookRepository           { return &bookRepo{s.repos()} }
func (s *Store) Members() library.MemberRepository       { return &memberRepo{s.repos()} }
func (s *Store) Borrowings() library.BorrowingRepository { return &borrowingRepo{s.repos()} }

func (s *Store) repos() repos {
	return repos{db: s.db}
}

// WithinTx runs fn inside one memdb write transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx library.Repositories) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(ctx, txRepos{repos{db: s.db, txn: txn}}); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

type txRepos struct {
	r repos
}

func (t txRepos) Books() library.BookRepository           { return &bookRepo{t.r} }
func (t txRepos) Members() library.MemberRepository       { return &memberRepo{t.r} }
func (t txRepos) Borrowings() library.BorrowingRepository { return &borrowingRepo{t.r} }

// repos carries the transaction a repository is bound to. Without one, reads
// use a fresh snapshot and writes commit immediately.
type repos struct {
	db  *memdb.MemDB
	txn *memdb.Txn
}

func (r repos) read() *memdb.Txn {
	if r.txn != nil {
		return r.txn
	}
	return r.db.Txn(false)
}

func (r repos) write(fn func(txn *memdb.Txn) error) error {
	if r.txn != nil {
		return fn(r.txn)
	}

	txn := r.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", library.ErrStoreFailure, op, err)
}
