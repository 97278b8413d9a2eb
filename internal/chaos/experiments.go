// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"libradesk/internal/client"
	"libradesk/internal/library"
)

// BorrowRaceName names the concurrent borrow experiment.
const BorrowRaceName = "concurrent-borrow-race"

// RegisterExperiments registers the predefined experiments for book and members.
func (e *Engine) RegisterExperiments(c *client.Client, book string, members []string) {
	e.Register(BorrowRace(c, book, members))
}

type borrowRace struct {
	client  *client.Client
	book    string
	members []string

	mu         sync.Mutex
	stock      int
	borrowers  []string
	rejections int
}

// BorrowRace fires one borrow per member at the same moment for a single
// title. Exactly stock-1 of them may succeed (fewer when there are fewer
// members), the rest must be refused with a 4xx, and the shelf must end with
// the copies nobody got. Rollback returns every loan it made.
func BorrowRace(c *client.Client, book string, members []string) Experiment {
	race := &borrowRace{client: c, book: book, members: members}

	return Experiment{
		Name:       BorrowRaceName,
		Hypothesis: "Concurrent borrows of one title never lend its last copy",
		SteadyState: []Probe{
			{
				Name:      "stock",
				Query:     race.readStock,
				Threshold: Threshold{Operator: ">=", Value: 1},
			},
		},
		Method: []Action{
			{Type: "concurrent-requests", Target: "borrowing", Execute: race.fire},
		},
		Observe: []Probe{
			{Name: "successes", Query: race.successes},
			{Name: "rejections", Query: race.rejected},
			{Name: "shelf", Query: race.shelf},
		},
		Rollback: []Action{
			{Type: "return-loans", Target: "borrowing", Execute: race.returnAll},
		},
		Validation: []Assertion{
			{
				Probe:     "successes",
				Condition: func(v float64) bool { return int(v) == race.expected() },
				Message:   "exactly stock-1 borrows should succeed",
			},
			{
				Probe:     "rejections",
				Condition: func(v float64) bool { return int(v) == len(members)-race.expected() },
				Message:   "every other borrow should be refused",
			},
			{
				Probe:     "shelf",
				Condition: func(v float64) bool { return int(v) == race.stock-race.expected() },
				Message:   "the shelf should keep the copies nobody got",
			},
		},
	}
}

func (r *borrowRace) readStock(ctx context.Context) (float64, error) {
	book, err := r.client.GetBook(ctx, r.book)
	if err != nil {
		return 0, err
	}
	r.stock = book.Quantity
	return float64(book.Quantity), nil
}

func (r *borrowRace) expected() int {
	return max(0, min(r.stock-1, len(r.members)))
}

func (r *borrowRace) fire(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		errs = make([]error, len(r.members))
	)
	for i, member := range r.members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.client.Borrow(ctx, r.book, member)

			r.mu.Lock()
			defer r.mu.Unlock()
			switch {
			case err == nil:
				r.borrowers = append(r.borrowers, member)
			case client.IsClientError(err):
				r.rejections++
			default:
				errs[i] = fmt.Errorf("borrow by %s: %w", member, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (r *borrowRace) successes(context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(len(r.borrowers)), nil
}

func (r *borrowRace) rejected(context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.rejections), nil
}

func (r *borrowRace) shelf(ctx context.Context) (float64, error) {
	book, err := r.client.GetBook(ctx, r.book)
	if err != nil {
		return 0, err
	}
	return float64(book.Quantity), nil
}

func (r *borrowRace) returnAll(ctx context.Context) error {
	r.mu.Lock()
	borrowers := r.borrowers
	r.mu.Unlock()

	var errs []error
	for _, member := range borrowers {
		if _, err := r.client.Return(ctx, r.book, member); err != nil {
			errs = append(errs, fmt.Errorf("return by %s: %w", member, err))
		}
	}
	return errors.Join(errs...)
}

// PrepareBorrowRace makes sure the title and n drill members exist and
// returns the member names. Records that are already there are reused.
func PrepareBorrowRace(ctx context.Context, c *client.Client, book string, stock, n int) ([]string, error) {
	_, err := c.AddBook(ctx, library.Book{Title: book, Author: "Chaos Drill", Quantity: stock})
	if err != nil && !client.IsClientError(err) {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}

	members := make([]string, n)
	for i := range members {
		members[i] = fmt.Sprintf("drill-member-%02d", i+1)
		_, err := c.AddMember(ctx, library.Member{Name: members[i], Email: members[i] + "@drill.invalid"})
		if err != nil && !client.IsClientError(err) {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}
	return members, nil
}
