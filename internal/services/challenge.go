package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/progress"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

// ChallengeService est le registre des challenges
type ChallengeService struct {
	store              store.Store
	agg                *progress.Aggregator
	policy             store.RetryPolicy
	defaultAggregation model.Aggregation
}

func NewChallengeService(s store.Store, agg *progress.Aggregator, policy store.RetryPolicy, defaultAggregation model.Aggregation) *ChallengeService {
	if !defaultAggregation.Valid() {
		defaultAggregation = model.AggregateCount
	}
	return &ChallengeService{store: s, agg: agg, policy: policy, defaultAggregation: defaultAggregation}
}

func (s *ChallengeService) Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error) {
	out := *c
	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Aggregation == "" {
		out.Aggregation = s.defaultAggregation
	}
	if out.Status == "" {
		out.Status = model.StatusUpcoming
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}

	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertChallenge(ctx, &out)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Challenge %s created (%s → %s, %s)", out.ID, out.StartDate, out.EndDate, out.Aggregation)

	// un challenge créé directement actif suit le même chemin qu'une activation
	if out.IsActive() {
		if _, err := s.agg.OnChallengeActivated(ctx, out.ID); err != nil {
			return &out, err
		}
	}
	return &out, nil
}

// SetStatus change le statut. Le passage à active déclenche le recalcul
// complet, après validation du nouveau statut. Le résultat est nil si aucun
// recalcul n'a eu lieu.
func (s *ChallengeService) SetStatus(ctx context.Context, id string, status model.ChallengeStatus) (*progress.BatchResult, error) {
	if !status.Valid() {
		return nil, apperror.Validationf("unknown status %q", status)
	}

	var previous model.ChallengeStatus
	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.GetChallenge(ctx, id)
		if err != nil {
			return err
		}
		previous = c.Status
		if previous == status {
			return nil
		}
		return tx.UpdateChallengeStatus(ctx, id, status)
	})
	if err != nil {
		return nil, err
	}

	if previous == status {
		return nil, nil
	}
	logger.Info("Challenge %s: %s → %s", id, previous, status)

	if status != model.StatusActive {
		return nil, nil
	}

	res, err := s.agg.OnChallengeActivated(ctx, id)
	if err != nil {
		logger.Error("activation recompute of %s stopped (cursor=%q): %v", id, res.Cursor, err)
		return &res, err
	}
	return &res, nil
}

func (s *ChallengeService) ActiveChallenges(ctx context.Context) ([]model.Challenge, error) {
	return s.List(ctx, model.StatusActive)
}

func (s *ChallengeService) List(ctx context.Context, status model.ChallengeStatus) ([]model.Challenge, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.Validationf("unknown status %q", status)
	}
	var out []model.Challenge
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListChallenges(ctx, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Challenge{}
	}
	return out, nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*model.Challenge, error) {
	var c *model.Challenge
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		c, err = tx.GetChallenge(ctx, id)
		return err
	})
	return c, err
}

// Delete supprime le challenge et ses progressions
func (s *ChallengeService) Delete(ctx context.Context, id string) error {
	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteChallenge(ctx, id)
	})
	if err == nil {
		logger.Info("Challenge %s deleted", id)
	}
	return err
}

// Recompute rejoue le recalcul complet d'un challenge, à partir de cursor si fourni
func (s *ChallengeService) Recompute(ctx context.Context, id, cursor string) (progress.BatchResult, error) {
	return s.agg.ResumeActivation(ctx, id, cursor)
}
