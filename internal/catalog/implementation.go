// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"libradesk/internal/library"
	"libradesk/internal/textmatch"
)

// service implements the Service interface.
type service struct {
	store  library.Store
	logger *slog.Logger
	retry  library.RetryPolicy
}

// Option configures the catalog service.
type Option func(*service)

// WithRetry replaces the policy for updates the store aborted on a conflict.
func WithRetry(policy library.RetryPolicy) Option {
	return func(s *service) { s.retry = policy }
}

// NewService creates a new catalog service instance.
func NewService(store library.Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{store: store, logger: logger, retry: library.DefaultRetry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) List(ctx context.Context) ([]library.Book, error) {
	books, err := s.store.Books().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (s *service) Get(ctx context.Context, title string) (library.Book, error) {
	book, err := s.store.Books().FindByTitle(ctx, title)
	if errors.Is(err, library.ErrRecordNotFound) {
		return library.Book{}, library.NewProblem(library.ErrRecordNotFound, msgNotFound)
	}
	if err != nil {
		return library.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

func (s *service) Add(ctx context.Context, book library.Book) (Outcome, error) {
	outcome, err := s.add(ctx, s.store, book)
	if err != nil {
		return Outcome{}, err
	}
	s.logger.InfoContext(ctx, "book added", slog.String("title", book.Title))
	return outcome, nil
}

// add validates and inserts book through repos, which may be bound to a
// transaction.
func (s *service) add(ctx context.Context, repos library.Repositories, book library.Book) (Outcome, error) {
	book.Title = strings.TrimSpace(book.Title)
	if book.Title == "" {
		return Outcome{}, library.NewProblem(library.ErrInvalidInput, msgTitleRequired)
	}
	if book.Quantity < 0 {
		return Outcome{}, library.NewProblem(library.ErrInvalidInput, msgNegativeQty)
	}

	outcome := Outcome{Created: true}
	if book.Quantity == 0 {
		book.Quantity = 1
		outcome.Warning = warnZeroQuantity
	}
	if strings.TrimSpace(book.Author) == "" {
		book.Author = defaultAuthor
	}
	book.ID = uuid.New()

	err := repos.Books().Insert(ctx, book)
	if errors.Is(err, library.ErrDuplicateKey) {
		return Outcome{}, library.NewProblem(library.ErrDuplicateKey, msgDuplicate)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to insert book: %w", err)
	}
	return outcome, nil
}

func (s *service) Update(ctx context.Context, title string, patch BookPatch, confirm bool) (Outcome, error) {
	// A rename locks the book before its borrowings while a return goes the
	// other way, so postgres may pick this transaction as a deadlock victim.
	outcome, err := library.RetryConflicts(ctx, s.retry, s.logger, func() (Outcome, error) {
		return s.update(ctx, title, patch, confirm)
	})
	if err != nil {
		return Outcome{}, err
	}

	s.logger.InfoContext(ctx, "book updated",
		slog.String("title", title),
		slog.Bool("created", outcome.Created),
	)
	return outcome, nil
}

func (s *service) update(ctx context.Context, title string, patch BookPatch, confirm bool) (Outcome, error) {
	var outcome Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		book, err := tx.Books().LockByTitle(ctx, title)
		if errors.Is(err, library.ErrRecordNotFound) {
			if !confirm {
				return library.NewProblem(library.ErrRecordNotFound, msgUpdateNotFound)
			}
			fresh := patch.Book()
			if strings.TrimSpace(fresh.Title) == "" {
				fresh.Title = title
			}
			outcome, err = s.add(ctx, tx, fresh)
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}

		renamed := patch.Title != "" && patch.Title != book.Title
		merge(&book, patch)

		if err := tx.Books().Update(ctx, book); err != nil {
			if errors.Is(err, library.ErrDuplicateKey) {
				return library.NewProblem(library.ErrDuplicateKey, fmt.Sprintf("A book titled %q already exists.", book.Title))
			}
			return fmt.Errorf("failed to update book: %w", err)
		}
		if renamed {
			if err := tx.Borrowings().RenameBook(ctx, book.ID, book.Title); err != nil {
				return fmt.Errorf("failed to rename borrowings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func merge(book *library.Book, patch BookPatch) {
	if patch.Title != "" {
		book.Title = patch.Title
	}
	if patch.Author != "" {
		book.Author = patch.Author
	}
	if patch.Quantity > 0 {
		book.Quantity = patch.Quantity
	}
	if patch.PublishedYear != 0 {
		book.PublishedYear = patch.PublishedYear
	}
}

func (s *service) Delete(ctx context.Context, title string) error {
	err := s.store.Books().DeleteByTitle(ctx, title)
	switch {
	case errors.Is(err, library.ErrRecordNotFound):
		return library.NewProblem(library.ErrRecordNotFound, msgDeleteNotFound)
	case errors.Is(err, library.ErrInUse):
		return library.NewProblem(library.ErrInUse, msgDeleteInUse)
	case err != nil:
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.logger.InfoContext(ctx, "book deleted", slog.String("title", title))
	return nil
}

func (s *service) SearchByTitle(ctx context.Context, title string) (SearchResult, error) {
	term, warning := clean(title, msgDirtyTitle)
	return s.search(ctx, library.BookFilter{Title: term}, warning)
}

func (s *service) SearchByAuthor(ctx context.Context, author string) (SearchResult, error) {
	term, warning := clean(author, msgDirtyAuthor)
	return s.search(ctx, library.BookFilter{Author: term}, warning)
}

func (s *service) SearchByYearRange(ctx context.Context, startYear, endYear int) (SearchResult, error) {
	warning, err := checkYears(startYear, endYear)
	if err != nil {
		return SearchResult{}, err
	}
	return s.search(ctx, library.BookFilter{YearFrom: &startYear, YearTo: &endYear}, warning)
}

func (s *service) SearchByTitleAndYearRange(ctx context.Context, title string, startYear, endYear int) (SearchResult, error) {
	term, warning := clean(title, msgDirtyTitle)
	yearWarning, err := checkYears(startYear, endYear)
	if err != nil {
		return SearchResult{}, err
	}
	if yearWarning != "" {
		warning = yearWarning
	}
	return s.search(ctx, library.BookFilter{Title: term, YearFrom: &startYear, YearTo: &endYear}, warning)
}

func (s *service) search(ctx context.Context, filter library.BookFilter, warning string) (SearchResult, error) {
	books, err := s.store.Books().Search(ctx, filter)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to search books: %w", err)
	}
	if warning != "" {
		s.logger.DebugContext(ctx, "search term sanitized", slog.String("warning", warning))
	}
	return SearchResult{Warning: warning, Books: books}, nil
}

// clean sanitizes a search term and returns warning when it had to.
func clean(term, warning string) (string, string) {
	cleaned, changed := textmatch.Sanitize(term)
	if !changed {
		return cleaned, ""
	}
	return cleaned, warning
}

// checkYears rejects negative bounds. An inverted range only earns a warning;
// the search still runs and matches nothing.
func checkYears(startYear, endYear int) (string, error) {
	if startYear < 0 || endYear < 0 {
		return "", library.NewProblem(library.ErrInvalidInput, msgNegativeYear)
	}
	if endYear < startYear {
		return msgInvertedYears, nil
	}
	return "", nil
}
