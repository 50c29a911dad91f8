package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
)

var fast = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func TestRetry_ConflictThenSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperror.Conflictf("serialization failure")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return apperror.Conflictf("deadlock")
	})
	assert.True(t, apperror.IsKind(err, apperror.Conflict))
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorsNotRetried(t *testing.T) {
	for _, cause := range []error{
		apperror.Validationf("bad input"),
		apperror.New(apperror.Unavailable, "database down"),
		errors.New("unexpected"),
	} {
		calls := 0
		err := Retry(context.Background(), fast, func(ctx context.Context) error {
			calls++
			return cause
		})
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, calls, cause.Error())
	}
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		cancel()
		return apperror.Conflictf("busy")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
