// Package progress maintient la valeur de progression (user, challenge)
// cohérente avec les activités stockées. Chaque recalcul est une fonction
// pure des activités : le rejouer est toujours sûr.
package progress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/metrics"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

// Déclencheurs, utilisés comme label de métrique
const (
	TriggerDirect     = "direct"
	TriggerActivity   = "activity"
	TriggerActivation = "activation"
)

// Emitter reçoit les notifications produites par le recalcul, après commit
type Emitter interface {
	Emit(ctx context.Context, n *model.Notification) error
}

type Options struct {
	BatchSize          int
	Workers            int
	DefaultAggregation model.Aggregation
	Retry              store.RetryPolicy
}

type Aggregator struct {
	store   store.Store
	emitter Emitter
	opts    Options
	now     func() time.Time
}

func NewAggregator(s store.Store, emitter Emitter, opts Options) *Aggregator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if !opts.DefaultAggregation.Valid() {
		opts.DefaultAggregation = model.AggregateCount
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = store.DefaultRetryPolicy
	}
	return &Aggregator{store: s, emitter: emitter, opts: opts, now: time.Now}
}

// Pending accumule les notifications d'une transaction.
// Elles ne sont émises qu'une fois la transaction validée.
type Pending struct {
	notifications []model.Notification
}

func NewPending() *Pending {
	return &Pending{}
}

func (p *Pending) add(n model.Notification) {
	if p != nil {
		p.notifications = append(p.notifications, n)
	}
}

func (p *Pending) Notifications() []model.Notification {
	if p == nil {
		return nil
	}
	return p.notifications
}

// Flush émet les notifications en attente. Un échec est journalisé, jamais remonté :
// l'émission ne peut pas annuler une écriture déjà validée.
func (a *Aggregator) Flush(ctx context.Context, p *Pending) {
	if a.emitter == nil {
		return
	}
	for _, n := range p.Notifications() {
		n := n
		if err := a.emitter.Emit(ctx, &n); err != nil {
			logger.Warning("could not emit %s notification to %s: %v", n.Type, n.UserID, err)
		}
	}
}

// RecomputeOne recalcule et écrit la progression de userID sur challengeID
// dans la transaction tx. La ligne est créée à 0 si elle n'existe pas.
func (a *Aggregator) RecomputeOne(ctx context.Context, tx store.Tx, pending *Pending, userID, challengeID string) (int, error) {
	return a.recompute(ctx, tx, pending, userID, challengeID, TriggerDirect)
}

func (a *Aggregator) recompute(ctx context.Context, tx store.Tx, pending *Pending, userID, challengeID, trigger string) (int, error) {
	start := time.Now()
	defer func() { metrics.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	c, err := tx.GetChallenge(ctx, challengeID)
	if err != nil {
		return 0, err
	}

	p, err := tx.LockProgress(ctx, userID, challengeID)
	if err != nil {
		return 0, err
	}

	activities, err := tx.ListActivities(ctx, userID, c.StartDate, c.EndDate)
	if err != nil {
		return 0, err
	}

	aggregation := c.Aggregation
	if !aggregation.Valid() {
		aggregation = a.opts.DefaultAggregation
	}

	p.CurrentValue = aggregation.Reduce(activities)
	p.FirstActivityAt = earliestLoggedAt(activities)

	reached := c.TargetValue > 0 && p.CurrentValue >= c.TargetValue
	switch {
	case reached && p.CompletedAt == nil:
		now := a.now()
		p.CompletedAt = &now
		pending.add(milestone(c, p, now))
	case !reached:
		p.CompletedAt = nil
	}

	if err := tx.SaveProgress(ctx, p); err != nil {
		return 0, err
	}

	metrics.Recomputations.WithLabelValues(trigger).Inc()
	logger.Debug("recomputed progress user=%s challenge=%s value=%d (%s)", userID, challengeID, p.CurrentValue, trigger)
	return p.CurrentValue, nil
}

func earliestLoggedAt(activities []model.Activity) *time.Time {
	var first *time.Time
	for i := range activities {
		t := activities[i].LoggedAt
		if t.IsZero() {
			continue
		}
		if first == nil || t.Before(*first) {
			first = &t
		}
	}
	return first
}

func milestone(c *model.Challenge, p *model.Progress, at time.Time) model.Notification {
	return model.Notification{
		ID:      uuid.NewString(),
		UserID:  p.UserID,
		Type:    model.NotificationChallenge,
		Title:   "Challenge completed",
		Message: fmt.Sprintf("You reached %d %s on %q", p.CurrentValue, c.Unit, c.Title),
		Payload: model.ChallengePayload{
			ChallengeID:  c.ID,
			CurrentValue: p.CurrentValue,
			TargetValue:  c.TargetValue,
			Unit:         c.Unit,
		},
		CreatedAt: at,
	}
}

// OnActivityChanged recalcule, dans la transaction de la mutation, chaque
// challenge actif pour le propriétaire de before et celui de after.
// Tous les challenges actifs sont parcourus : une modification peut faire
// entrer ou sortir la date d'une fenêtre.
func (a *Aggregator) OnActivityChanged(ctx context.Context, tx store.Tx, pending *Pending, before, after *model.Activity) error {
	users := affectedUsers(before, after)
	if len(users) == 0 {
		return nil
	}

	active, err := tx.ListChallenges(ctx, model.StatusActive)
	if err != nil {
		return err
	}

	// ordre stable (users puis challenges) pour la prise des verrous
	for _, userID := range users {
		for _, c := range active {
			if _, err := a.recompute(ctx, tx, pending, userID, c.ID, TriggerActivity); err != nil {
				return fmt.Errorf("recompute %s on %s: %w", userID, c.ID, err)
			}
		}
	}
	return nil
}

func affectedUsers(before, after *model.Activity) []string {
	var users []string
	if before != nil && before.UserID != "" {
		users = append(users, before.UserID)
	}
	if after != nil && after.UserID != "" && (before == nil || after.UserID != before.UserID) {
		users = append(users, after.UserID)
	}
	sort.Strings(users)
	return users
}

// BatchResult décrit l'avancement d'un recalcul par lots.
// Cursor est le dernier user_id traité : il permet de reprendre le job.
type BatchResult struct {
	ChallengeID string `json:"challengeId"`
	Processed   int    `json:"processed"`
	Batches     int    `json:"batches"`
	Cursor      string `json:"cursor,omitempty"`
	Done        bool   `json:"done"`
}

// OnChallengeActivated recalcule la progression de tous les utilisateurs ayant
// au moins une activité dans la fenêtre du challenge. Les autres n'ont pas de
// ligne et valent 0.
func (a *Aggregator) OnChallengeActivated(ctx context.Context, challengeID string) (BatchResult, error) {
	return a.ResumeActivation(ctx, challengeID, "")
}

// ResumeActivation reprend le job après cursor. Chaque utilisateur est recalculé
// dans sa propre transaction ; un lot interrompu peut être rejoué sans effet de bord.
func (a *Aggregator) ResumeActivation(ctx context.Context, challengeID, cursor string) (BatchResult, error) {
	result := BatchResult{ChallengeID: challengeID, Cursor: cursor}

	var c *model.Challenge
	err := a.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		c, err = tx.GetChallenge(ctx, challengeID)
		return err
	})
	if err != nil {
		return result, err
	}

	for {
		if err := ctx.Err(); err != nil {
			logger.Warning("activation of %s interrupted after %d users (cursor=%q)", challengeID, result.Processed, result.Cursor)
			return result, err
		}

		var users []string
		err := a.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			var err error
			users, err = tx.UsersWithActivity(ctx, c.StartDate, c.EndDate, result.Cursor, a.opts.BatchSize)
			return err
		})
		if err != nil {
			return result, err
		}
		if len(users) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.opts.Workers)
		for _, userID := range users {
			userID := userID
			g.Go(func() error {
				return a.recomputeInTx(gctx, userID, challengeID, TriggerActivation)
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}

		result.Processed += len(users)
		result.Batches++
		result.Cursor = users[len(users)-1]
		metrics.ActivationUsers.Add(float64(len(users)))
		logger.Debug("activation %s: batch %d done, %d users", challengeID, result.Batches, result.Processed)

		if len(users) < a.opts.BatchSize {
			break
		}
	}

	result.Done = true
	logger.Success("Challenge %s recomputed for %d users in %d batches", challengeID, result.Processed, result.Batches)
	return result, nil
}

func (a *Aggregator) recomputeInTx(ctx context.Context, userID, challengeID, trigger string) error {
	var pending *Pending
	err := store.RunTx(ctx, a.store, a.opts.Retry, func(ctx context.Context, tx store.Tx) error {
		pending = NewPending()
		_, err := a.recompute(ctx, tx, pending, userID, challengeID, trigger)
		return err
	})
	if err != nil {
		return fmt.Errorf("recompute %s on %s: %w", userID, challengeID, err)
	}
	a.Flush(ctx, pending)
	return nil
}
