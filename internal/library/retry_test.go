package library_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/library"
)

var quick = library.RetryPolicy{MaxTries: 3, Interval: time.Millisecond}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRetryConflicts_RecoversFromConflict(t *testing.T) {
	calls := 0
	got, err := library.RetryConflicts(context.Background(), quick, discard(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.Join(library.ErrConflict, errors.New("deadlock detected"))
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestRetryConflicts_GivesUpAfterMaxTries(t *testing.T) {
	calls := 0
	_, err := library.RetryConflicts(context.Background(), quick, discard(), func() (int, error) {
		calls++
		return 0, library.ErrConflict
	})
	assert.ErrorIs(t, err, library.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryConflicts_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	_, err := library.RetryConflicts(context.Background(), quick, discard(), func() (int, error) {
		calls++
		return 0, library.NewProblem(library.ErrRecordNotFound, "missing")
	})
	assert.ErrorIs(t, err, library.ErrRecordNotFound)
	assert.Equal(t, 1, calls)
}
