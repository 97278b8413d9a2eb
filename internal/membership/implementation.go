// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"libradesk/internal/library"
)

// service implements the Service interface.
type service struct {
	store  library.Store
	logger *slog.Logger
	retry  library.RetryPolicy
}

// Option configures the membership service.
type Option func(*service)

// WithRetry replaces the policy for updates the store aborted on a conflict.
func WithRetry(policy library.RetryPolicy) Option {
	return func(s *service) { s.retry = policy }
}

// NewService creates a new membership service instance.
func NewService(store library.Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{store: store, logger: logger, retry: library.DefaultRetry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) List(ctx context.Context) ([]library.Member, error) {
	members, err := s.store.Members().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (s *service) Get(ctx context.Context, name string) (library.Member, error) {
	member, err := s.store.Members().FindByName(ctx, name)
	if errors.Is(err, library.ErrRecordNotFound) {
		return library.Member{}, library.NewProblem(library.ErrRecordNotFound, msgNotFound)
	}
	if err != nil {
		return library.Member{}, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (s *service) Add(ctx context.Context, member library.Member) error {
	if err := add(ctx, s.store, member); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "member added", slog.String("name", member.Name))
	return nil
}

func add(ctx context.Context, repos library.Repositories, member library.Member) error {
	member.Name = strings.TrimSpace(member.Name)
	if member.Name == "" {
		return library.NewProblem(library.ErrInvalidInput, msgNameRequired)
	}
	if strings.TrimSpace(member.Email) == "" {
		member.Email = defaultEmail
	}
	member.ID = uuid.New()

	err := repos.Members().Insert(ctx, member)
	if errors.Is(err, library.ErrDuplicateKey) {
		return library.NewProblem(library.ErrDuplicateKey, msgDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func (s *service) Update(ctx context.Context, name string, patch MemberPatch, confirm bool) (bool, error) {
	created, err := library.RetryConflicts(ctx, s.retry, s.logger, func() (bool, error) {
		return s.update(ctx, name, patch, confirm)
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "member updated",
		slog.String("name", name),
		slog.Bool("created", created),
	)
	return created, nil
}

func (s *service) update(ctx context.Context, name string, patch MemberPatch, confirm bool) (bool, error) {
	created := false
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx library.Repositories) error {
		member, err := tx.Members().LockByName(ctx, name)
		if errors.Is(err, library.ErrRecordNotFound) {
			if !confirm {
				return library.NewProblem(library.ErrRecordNotFound, msgUpdateNotFound)
			}
			fresh := patch.Member()
			if strings.TrimSpace(fresh.Name) == "" {
				fresh.Name = name
			}
			created = true
			return add(ctx, tx, fresh)
		}
		if err != nil {
			return fmt.Errorf("failed to find member: %w", err)
		}

		renamed := patch.Name != "" && patch.Name != member.Name
		if patch.Name != "" {
			member.Name = patch.Name
		}
		if patch.Email != "" {
			member.Email = patch.Email
		}

		if err := tx.Members().Update(ctx, member); err != nil {
			if errors.Is(err, library.ErrDuplicateKey) {
				return library.NewProblem(library.ErrDuplicateKey, fmt.Sprintf("A member named %q already exists.", member.Name))
			}
			return fmt.Errorf("failed to update member: %w", err)
		}
		if renamed {
			if err := tx.Borrowings().RenameMember(ctx, member.ID, member.Name); err != nil {
				return fmt.Errorf("failed to rename borrowings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *service) Delete(ctx context.Context, name string) error {
	err := s.store.Members().DeleteByName(ctx, name)
	switch {
	case errors.Is(err, library.ErrRecordNotFound):
		return library.NewProblem(library.ErrRecordNotFound, msgDeleteNotFound)
	case errors.Is(err, library.ErrInUse):
		return library.NewProblem(library.ErrInUse, msgDeleteInUse)
	case err != nil:
		return fmt.Errorf("failed to delete member: %w", err)
	}

	s.logger.InfoContext(ctx, "member deleted", slog.String("name", name))
	return nil
}
