package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/metrics"
)

// RetryPolicy borne les nouvelles tentatives sur conflit de transaction
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.2
	exp.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Retry réexécute fn tant qu'elle échoue sur un conflit, dans la limite de la politique.
// Les autres erreurs sont renvoyées immédiatement.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if apperror.Transient(err) {
			metrics.TxConflicts.Inc()
			logger.Warning("transaction conflict (attempt %d/%d): %v", attempt, policy.MaxAttempts, err)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, policy.backOff(ctx))
	if err != nil && apperror.Transient(err) {
		return apperror.Wrap(apperror.Conflict, err, "transaction retries exhausted")
	}
	return err
}

// RunTx combine WithTx et Retry : la transaction entière est rejouée sur conflit
func RunTx(ctx context.Context, s Store, policy RetryPolicy, fn func(ctx context.Context, tx Tx) error) error {
	return Retry(ctx, policy, func(ctx context.Context) error {
		return s.WithTx(ctx, fn)
	})
}
