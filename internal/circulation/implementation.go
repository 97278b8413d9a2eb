// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/library"
)

const instrumentationName = "libradesk/circulation"

// service implements the Service interface.
type service struct {
	store      library.Store
	logger     *slog.Logger
	clock      Clock
	tracer     trace.Tracer
	meter      metric.Meter
	borrowings metric.Int64Counter
	retry      library.RetryPolicy
}

// Option configures the circulation service.
type Option func(*service)

// WithClock replaces time.Now as the source of loan dates.
func WithClock(clock Clock) Option {
	return func(s *service) { s.clock = clock }
}

// WithMeterProvider records metrics through mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *service) { s.meter = mp.Meter(instrumentationName) }
}

// WithRetry sets how often a conflicting transaction is attempted and the
// first pause between attempts.
func WithRetry(maxTries uint, interval time.Duration) Option {
	return func(s *service) {
		s.retry = library.RetryPolicy{MaxTries: maxTries, Interval: interval}
	}
}

// NewService creates a new circulation service instance.
func NewService(store library.Store, logger *slog.Logger, opts ...Option) (Service, error) {
	s := &service{
		store:  store,
		logger: logger,
		clock:  time.Now,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
		retry:  library.DefaultRetry,
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := s.meter.Int64Counter("libradesk.borrowings",
		metric.WithDescription("Borrow and return attempts by outcome."),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create borrowings counter: %w", err)
	}
	s.borrowings = counter
	return s, nil
}

func (s *service) Borrow(ctx context.Context, bookName, memberName string) (library.Borrowing, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Borrow", trace.WithAttributes(
		attribute.String("book.title", bookName),
		attribute.String("member.name", memberName),
	))
	defer span.End()

	borrowing, err := library.RetryConflicts(ctx, s.retry, s.logger, func() (library.Borrowing, error) {
		return s.borrow(ctx, bookName, memberName)
	})
	s.record(ctx, span, opBorrow, err)
	if err != nil {
		return library.Borrowing{}, err
	}

	s.logger.InfoContext(ctx, "book borrowed",
		slog.String("title", bookName),
		slog.String("member", memberName),
		slog.Time("due", borrowing.DueDate),
	)
	return borrowing, nil
}

func (s *service) borrow(ctx context.Context, bookName, memberName string) (library.Borrowing, error) {
	var borrowing library.Borrowing
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		book, err := tx.Books().LockByTitle(ctx, bookName)
		if errors.Is(err, library.ErrRecordNotFound) {
			return library.NewProblem(library.ErrEntityNotFound, msgEntityNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}

		// Shared so a concurrent rename cannot slip in before the insert and
		// leave the new loan with the old member name.
		member, err := tx.Members().ShareByName(ctx, memberName)
		if errors.Is(err, library.ErrRecordNotFound) {
			return library.NewProblem(library.ErrEntityNotFound, msgEntityNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to find member: %w", err)
		}

		if book.Quantity <= 1 {
			return library.NewProblem(library.ErrBookNotAvailable, msgNotAvailable)
		}
		book.Quantity--
		if err := tx.Books().Update(ctx, book); err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}

		today := library.Day(s.clock())
		borrowing = library.Borrowing{
			ID:         uuid.New(),
			BookID:     book.ID,
			MemberID:   member.ID,
			BookName:   book.Title,
			MemberName: member.Name,
			BorrowDate: today,
			DueDate:    today.Add(library.LoanPeriod),
			Status:     library.LoanOpen,
		}
		if err := tx.Borrowings().Insert(ctx, borrowing); err != nil {
			return fmt.Errorf("failed to insert borrowing: %w", err)
		}
		return nil
	})
	return borrowing, err
}

func (s *service) Return(ctx context.Context, bookName, memberName string) (library.Borrowing, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Return", trace.WithAttributes(
		attribute.String("book.title", bookName),
		attribute.String("member.name", memberName),
	))
	defer span.End()

	borrowing, err := library.RetryConflicts(ctx, s.retry, s.logger, func() (library.Borrowing, error) {
		return s.giveBack(ctx, bookName, memberName)
	})
	s.record(ctx, span, opReturn, err)
	if err != nil {
		return library.Borrowing{}, err
	}

	s.logger.InfoContext(ctx, "book returned",
		slog.String("title", bookName),
		slog.String("member", memberName),
	)
	return borrowing, nil
}

func (s *service) giveBack(ctx context.Context, bookName, memberName string) (library.Borrowing, error) {
	var borrowing library.Borrowing
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		loan, err := tx.Borrowings().LockOpen(ctx, bookName, memberName)
		if errors.Is(err, library.ErrRecordNotFound) {
			return library.NewProblem(library.ErrRecordNotFound, msgRecordNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock borrowing: %w", err)
		}

		book, err := tx.Books().LockByID(ctx, loan.BookID)
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}
		book.Quantity++
		if err := tx.Books().Update(ctx, book); err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}

		today := library.Day(s.clock())
		loan.ReturnDate = &today
		loan.Status = library.LoanReturned
		if err := tx.Borrowings().Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update borrowing: %w", err)
		}
		borrowing = loan
		return nil
	})
	return borrowing, err
}

func (s *service) CurrentlyBorrowed(ctx context.Context, asOf time.Time) ([]library.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.CurrentlyBorrowed")
	defer span.End()

	loans, err := s.store.Borrowings().OpenDueAfter(ctx, library.Day(asOf))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list borrowed books: %w", err)
	}
	return loans, nil
}

func (s *service) Overdue(ctx context.Context) ([]library.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Overdue")
	defer span.End()

	loans, err := s.store.Borrowings().OpenDueBefore(ctx, library.Day(s.clock()))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list overdue books: %w", err)
	}
	return loans, nil
}

func (s *service) record(ctx context.Context, span trace.Span, operation string, err error) {
	outcome := outcomeOf(err)
	s.borrowings.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))

	if err == nil {
		return
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	if library.IsDomainError(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, library.ErrEntityNotFound), errors.Is(err, library.ErrRecordNotFound):
		return outcomeNotFound
	case errors.Is(err, library.ErrBookNotAvailable):
		return outcomeNotAvailable
	case errors.Is(err, library.ErrConflict):
		return outcomeConflict
	default:
		return outcomeError
	}
}
