package services

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/progress"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

// ActivityService écrit les activités et recalcule la progression dans la même transaction
type ActivityService struct {
	store  store.Store
	agg    *progress.Aggregator
	policy store.RetryPolicy
	now    func() time.Time
}

func NewActivityService(s store.Store, agg *progress.Aggregator, policy store.RetryPolicy) *ActivityService {
	return &ActivityService{store: s, agg: agg, policy: policy, now: time.Now}
}

// Put crée ou remplace une activité. Une activité existante ne peut être
// modifiée que par son propriétaire.
func (s *ActivityService) Put(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	out := *a
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	// sans loggedAt explicite : now() à la création, valeur existante à la modification
	keepLoggedAt := a.LoggedAt.IsZero()

	var pending *progress.Pending
	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		pending = progress.NewPending()

		before, err := tx.GetActivity(ctx, out.ID)
		switch {
		case apperror.IsKind(err, apperror.NotFound):
			if keepLoggedAt {
				out.LoggedAt = s.now()
			}
			if err := tx.InsertActivity(ctx, &out); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !before.OwnedBy(out.UserID) {
				return apperror.Authorizationf("activity %s does not belong to user %s", out.ID, out.UserID)
			}
			if keepLoggedAt {
				out.LoggedAt = before.LoggedAt
			}
			if err := tx.UpdateActivity(ctx, &out); err != nil {
				return err
			}
		}

		return s.agg.OnActivityChanged(ctx, tx, pending, before, &out)
	})
	if err != nil {
		return nil, err
	}

	s.agg.Flush(ctx, pending)
	logger.Debug("activity %s saved for user %s", out.ID, out.UserID)
	return &out, nil
}

// Delete supprime l'activité id si requestingUser en est le propriétaire
func (s *ActivityService) Delete(ctx context.Context, id, requestingUser string) error {
	var pending *progress.Pending
	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		pending = progress.NewPending()

		before, err := tx.GetActivity(ctx, id)
		if err != nil {
			return err
		}
		if !before.OwnedBy(requestingUser) {
			return apperror.Authorizationf("activity %s does not belong to user %s", id, requestingUser)
		}
		if err := tx.DeleteActivity(ctx, id); err != nil {
			return err
		}
		return s.agg.OnActivityChanged(ctx, tx, pending, before, nil)
	})
	if err != nil {
		return err
	}

	s.agg.Flush(ctx, pending)
	return nil
}

// Query retourne les activités de userID dans [from, to], bornes incluses
func (s *ActivityService) Query(ctx context.Context, userID string, from, to civil.Date) ([]model.Activity, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, apperror.Validationf("invalid date range")
	}
	if to.Before(from) {
		return nil, apperror.Validationf("range end %s is before range start %s", to, from)
	}

	var out []model.Activity
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListActivities(ctx, userID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Activity{}
	}
	return out, nil
}
