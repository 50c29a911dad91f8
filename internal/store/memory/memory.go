// Package memory est une implémentation en mémoire de store.Store.
// Chaque transaction travaille sur une copie de l'état, sous un verrou global :
// les transactions sont sérialisées et l'annulation revient à jeter la copie.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

type state struct {
	activities    map[string]model.Activity
	challenges    map[string]model.Challenge
	progress      map[model.ProgressKey]model.Progress
	notifications map[string]model.Notification
}

func newState() *state {
	return &state{
		activities:    map[string]model.Activity{},
		challenges:    map[string]model.Challenge{},
		progress:      map[model.ProgressKey]model.Progress{},
		notifications: map[string]model.Notification{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.activities {
		c.activities[k] = v
	}
	for k, v := range s.challenges {
		c.challenges[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Close() {}

type tx struct {
	st  *state
	now func() time.Time
}

func copyActivity(a model.Activity) *model.Activity {
	return &a
}

func copyChallenge(c model.Challenge) *model.Challenge {
	if c.Tags != nil {
		c.Tags = append([]string(nil), c.Tags...)
	}
	return &c
}

func inRange(d, from, to civil.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// Activities

func (t *tx) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	a, ok := t.st.activities[id]
	if !ok {
		return nil, apperror.NotFoundf("activity %s not found", id)
	}
	return copyActivity(a), nil
}

func (t *tx) InsertActivity(ctx context.Context, a *model.Activity) error {
	if _, exists := t.st.activities[a.ID]; exists {
		return apperror.Conflictf("activity %s already exists", a.ID)
	}
	a.UpdatedAt = t.now()
	t.st.activities[a.ID] = *a
	return nil
}

func (t *tx) UpdateActivity(ctx context.Context, a *model.Activity) error {
	if _, exists := t.st.activities[a.ID]; !exists {
		return apperror.NotFoundf("activity %s not found", a.ID)
	}
	a.UpdatedAt = t.now()
	t.st.activities[a.ID] = *a
	return nil
}

func (t *tx) DeleteActivity(ctx context.Context, id string) error {
	if _, exists := t.st.activities[id]; !exists {
		return apperror.NotFoundf("activity %s not found", id)
	}
	delete(t.st.activities, id)
	return nil
}

func (t *tx) ListActivities(ctx context.Context, userID string, from, to civil.Date) ([]model.Activity, error) {
	var out []model.Activity
	for _, a := range t.st.activities {
		if a.UserID == userID && inRange(a.OccurredOn, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredOn != out[j].OccurredOn {
			return out[i].OccurredOn.Before(out[j].OccurredOn)
		}
		if !out[i].LoggedAt.Equal(out[j].LoggedAt) {
			return out[i].LoggedAt.Before(out[j].LoggedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) UsersWithActivity(ctx context.Context, from, to civil.Date, afterUserID string, limit int) ([]string, error) {
	seen := map[string]struct{}{}
	for _, a := range t.st.activities {
		if a.UserID > afterUserID && inRange(a.OccurredOn, from, to) {
			seen[a.UserID] = struct{}{}
		}
	}
	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Challenges

func (t *tx) InsertChallenge(ctx context.Context, c *model.Challenge) error {
	if _, exists := t.st.challenges[c.ID]; exists {
		return apperror.Validationf("challenge %s already exists", c.ID)
	}
	now := t.now()
	c.CreatedAt, c.UpdatedAt = now, now
	t.st.challenges[c.ID] = *copyChallenge(*c)
	return nil
}

func (t *tx) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	c, ok := t.st.challenges[id]
	if !ok {
		return nil, apperror.NotFoundf("challenge %s not found", id)
	}
	return copyChallenge(c), nil
}

func (t *tx) UpdateChallengeStatus(ctx context.Context, id string, status model.ChallengeStatus) error {
	c, ok := t.st.challenges[id]
	if !ok {
		return apperror.NotFoundf("challenge %s not found", id)
	}
	c.Status = status
	c.UpdatedAt = t.now()
	t.st.challenges[id] = c
	return nil
}

func (t *tx) DeleteChallenge(ctx context.Context, id string) error {
	if _, ok := t.st.challenges[id]; !ok {
		return apperror.NotFoundf("challenge %s not found", id)
	}
	delete(t.st.challenges, id)
	for k := range t.st.progress {
		if k.ChallengeID == id {
			delete(t.st.progress, k)
		}
	}
	return nil
}

func (t *tx) ListChallenges(ctx context.Context, status model.ChallengeStatus) ([]model.Challenge, error) {
	var out []model.Challenge
	for _, c := range t.st.challenges {
		if status == "" || c.Status == status {
			out = append(out, *copyChallenge(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Progress

func (t *tx) LockProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error) {
	if _, ok := t.st.challenges[challengeID]; !ok {
		return nil, apperror.NotFoundf("challenge %s not found", challengeID)
	}
	key := model.ProgressKey{UserID: userID, ChallengeID: challengeID}
	p, ok := t.st.progress[key]
	if !ok {
		p = model.Progress{UserID: userID, ChallengeID: challengeID, UpdatedAt: t.now()}
		t.st.progress[key] = p
	}
	return &p, nil
}

func (t *tx) SaveProgress(ctx context.Context, p *model.Progress) error {
	if _, ok := t.st.challenges[p.ChallengeID]; !ok {
		return apperror.NotFoundf("challenge %s not found", p.ChallengeID)
	}
	p.UpdatedAt = t.now()
	t.st.progress[p.Key()] = *p
	return nil
}

func (t *tx) GetProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error) {
	p, ok := t.st.progress[model.ProgressKey{UserID: userID, ChallengeID: challengeID}]
	if !ok {
		return nil, apperror.NotFoundf("no progress for user %s on challenge %s", userID, challengeID)
	}
	return &p, nil
}

func (t *tx) ListProgress(ctx context.Context, challengeID string) ([]model.Progress, error) {
	var out []model.Progress
	for k, p := range t.st.progress {
		if k.ChallengeID == challengeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrentValue != out[j].CurrentValue {
			return out[i].CurrentValue > out[j].CurrentValue
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Notifications

func (t *tx) InsertNotification(ctx context.Context, n *model.Notification) error {
	if _, exists := t.st.notifications[n.ID]; exists {
		return apperror.Validationf("notification %s already exists", n.ID)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = t.now()
	}
	t.st.notifications[n.ID] = *n
	return nil
}

func (t *tx) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	n, ok := t.st.notifications[id]
	if !ok {
		return nil, apperror.NotFoundf("notification %s not found", id)
	}
	return &n, nil
}

func (t *tx) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range t.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) MarkNotificationRead(ctx context.Context, id string) error {
	n, ok := t.st.notifications[id]
	if !ok {
		return apperror.NotFoundf("notification %s not found", id)
	}
	n.Read = true
	t.st.notifications[id] = n
	return nil
}
