// internal/catalog/service.go
package catalog

import (
	"context"

	"libradesk/internal/library"
)

// Service manages the book catalog. Books are addressed by title.
type Service interface {
	List(ctx context.Context) ([]library.Book, error)
	Get(ctx context.Context, title string) (library.Book, error)
	Add(ctx context.Context, book library.Book) (Outcome, error)
	// Update merges patch into the book stored under title. When no such book
	// exists it fails unless confirm is set, in which case the patch is added
	// as a new book.
	Update(ctx context.Context, title string, patch BookPatch, confirm bool) (Outcome, error)
	Delete(ctx context.Context, title string) error
	SearchByTitle(ctx context.Context, title string) (SearchResult, error)
	SearchByAuthor(ctx context.Context, author string) (SearchResult, error)
	SearchByYearRange(ctx context.Context, startYear, endYear int) (SearchResult, error)
	SearchByTitleAndYearRange(ctx context.Context, title string, startYear, endYear int) (SearchResult, error)
}
