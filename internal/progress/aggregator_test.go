package progress

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store/memory"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2025, Month: time.January, Day: 1}.AddDays(d - 1)
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (e *recordingEmitter) Emit(ctx context.Context, n *model.Notification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, *n)
	return nil
}

type fixture struct {
	t       *testing.T
	store   *memory.Store
	agg     *Aggregator
	emitter *recordingEmitter
	seq     int
}

func newFixture(t *testing.T) *fixture {
	s := memory.New()
	e := &recordingEmitter{}
	return &fixture{
		t:       t,
		store:   s,
		emitter: e,
		agg: NewAggregator(s, e, Options{
			BatchSize: 3,
			Workers:   2,
			Retry:     store.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		}),
	}
}

func (f *fixture) challenge(id string, status model.ChallengeStatus, agg model.Aggregation, target int) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertChallenge(ctx, &model.Challenge{
			ID: id, Title: id, StartDate: day(1), EndDate: day(10), TargetValue: target,
			Unit: "sessions", Aggregation: agg, Status: status,
		})
	}))
}

// put insère ou remplace une activité et déclenche le recalcul dans la même transaction
func (f *fixture) put(a model.Activity) model.Activity {
	f.t.Helper()
	if a.ID == "" {
		f.seq++
		a.ID = fmt.Sprintf("act-%03d", f.seq)
	}
	if a.LoggedAt.IsZero() {
		a.LoggedAt = time.Date(2025, time.January, 1, 0, 0, f.seq, 0, time.UTC)
	}
	pending := NewPending()
	require.NoError(f.t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		before, err := tx.GetActivity(ctx, a.ID)
		if err != nil {
			before = nil
			if err := tx.InsertActivity(ctx, &a); err != nil {
				return err
			}
		} else if err := tx.UpdateActivity(ctx, &a); err != nil {
			return err
		}
		return f.agg.OnActivityChanged(ctx, tx, pending, before, &a)
	}))
	f.agg.Flush(context.Background(), pending)
	return a
}

func (f *fixture) remove(id string) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		before, err := tx.GetActivity(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteActivity(ctx, id); err != nil {
			return err
		}
		return f.agg.OnActivityChanged(ctx, tx, nil, before, nil)
	}))
}

func (f *fixture) value(userID, challengeID string) int {
	f.t.Helper()
	var v int
	require.NoError(f.t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProgress(ctx, userID, challengeID)
		if err != nil {
			return err
		}
		v = p.CurrentValue
		return nil
	}))
	return v
}

func (f *fixture) rows(challengeID string) []model.Progress {
	f.t.Helper()
	var rows []model.Progress
	require.NoError(f.t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		rows, err = tx.ListProgress(ctx, challengeID)
		return err
	}))
	return rows
}

func TestWindowScenario(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 0)

	f.put(model.Activity{UserID: "A", OccurredOn: day(2), MetricValue: 1})
	day5 := f.put(model.Activity{UserID: "A", OccurredOn: day(5), MetricValue: 1})
	f.put(model.Activity{UserID: "A", OccurredOn: day(12), MetricValue: 1})
	assert.Equal(t, 2, f.value("A", "C"))

	f.remove(day5.ID)
	assert.Equal(t, 1, f.value("A", "C"))
}

func TestWindowBoundsAreInclusive(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 0)

	f.put(model.Activity{UserID: "A", OccurredOn: day(1), MetricValue: 1})
	f.put(model.Activity{UserID: "A", OccurredOn: day(10), MetricValue: 1})
	f.put(model.Activity{UserID: "A", OccurredOn: day(11), MetricValue: 1})
	f.put(model.Activity{UserID: "A", OccurredOn: day(0), MetricValue: 1})

	assert.Equal(t, 2, f.value("A", "C"))
}

func TestDeleteOutsideWindowLeavesValue(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateSum, 0)

	f.put(model.Activity{UserID: "A", OccurredOn: day(3), MetricValue: 4})
	outside := f.put(model.Activity{UserID: "A", OccurredOn: day(20), MetricValue: 7})
	assert.Equal(t, 4, f.value("A", "C"))

	f.remove(outside.ID)
	assert.Equal(t, 4, f.value("A", "C"))
}

func TestEditMovesDateAcrossWindow(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 0)

	f.put(model.Activity{UserID: "A", OccurredOn: day(4), MetricValue: 1})
	a := f.put(model.Activity{UserID: "A", OccurredOn: day(15), MetricValue: 1})
	assert.Equal(t, 1, f.value("A", "C"))

	a.OccurredOn = day(6)
	f.put(a)
	assert.Equal(t, 2, f.value("A", "C"))

	a.OccurredOn = day(30)
	f.put(a)
	assert.Equal(t, 1, f.value("A", "C"))
}

func TestOwnerChangeRecomputesBothUsers(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 0)

	a := f.put(model.Activity{UserID: "A", OccurredOn: day(4), MetricValue: 1})
	a.UserID = "B"
	f.put(a)

	assert.Equal(t, 0, f.value("A", "C"))
	assert.Equal(t, 1, f.value("B", "C"))
}

func TestInactiveChallengesAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.challenge("up", model.StatusUpcoming, model.AggregateCount, 0)
	f.challenge("done", model.StatusCompleted, model.AggregateCount, 0)

	f.put(model.Activity{UserID: "A", OccurredOn: day(4), MetricValue: 1})
	assert.Empty(t, f.rows("up"))
	assert.Empty(t, f.rows("done"))
}

func TestAggregations(t *testing.T) {
	f := newFixture(t)
	f.challenge("count", model.StatusActive, model.AggregateCount, 0)
	f.challenge("sum", model.StatusActive, model.AggregateSum, 0)
	f.challenge("max", model.StatusActive, model.AggregateMax, 0)

	for _, v := range []int{3, 9, 5} {
		f.put(model.Activity{UserID: "A", OccurredOn: day(2), MetricValue: v})
	}

	assert.Equal(t, 3, f.value("A", "count"))
	assert.Equal(t, 17, f.value("A", "sum"))
	assert.Equal(t, 9, f.value("A", "max"))
}

func TestRecomputeOneIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateSum, 0)
	f.put(model.Activity{UserID: "A", OccurredOn: day(2), MetricValue: 4})
	f.put(model.Activity{UserID: "A", OccurredOn: day(3), MetricValue: 6})

	var first, second int
	require.NoError(t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		if first, err = f.agg.RecomputeOne(ctx, tx, nil, "A", "C"); err != nil {
			return err
		}
		second, err = f.agg.RecomputeOne(ctx, tx, nil, "A", "C")
		return err
	}))
	assert.Equal(t, 10, first)
	assert.Equal(t, first, second)
}

func TestRecomputeOneCreatesZeroRow(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusUpcoming, model.AggregateCount, 0)

	require.NoError(t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		v, err := f.agg.RecomputeOne(ctx, tx, nil, "nobody", "C")
		assert.Equal(t, 0, v)
		return err
	}))
	assert.Equal(t, 0, f.value("nobody", "C"))
}

func TestFirstActivityAtIsEarliestQualifyingLog(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 0)
	early := time.Date(2025, time.January, 2, 7, 0, 0, 0, time.UTC)

	f.put(model.Activity{UserID: "A", OccurredOn: day(20), MetricValue: 1, LoggedAt: early.Add(-time.Hour)})
	f.put(model.Activity{UserID: "A", OccurredOn: day(3), MetricValue: 1, LoggedAt: early.Add(time.Hour)})
	f.put(model.Activity{UserID: "A", OccurredOn: day(2), MetricValue: 1, LoggedAt: early})

	rows := f.rows("C")
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].FirstActivityAt)
	assert.True(t, early.Equal(*rows[0].FirstActivityAt))
}

func TestMilestoneNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusActive, model.AggregateCount, 2)

	f.put(model.Activity{UserID: "A", OccurredOn: day(2), MetricValue: 1})
	assert.Empty(t, f.emitter.sent)

	f.put(model.Activity{UserID: "A", OccurredOn: day(3), MetricValue: 1})
	f.put(model.Activity{UserID: "A", OccurredOn: day(4), MetricValue: 1})

	require.Len(t, f.emitter.sent, 1)
	n := f.emitter.sent[0]
	assert.Equal(t, "A", n.UserID)
	assert.Equal(t, model.NotificationChallenge, n.Type)
	payload, ok := n.Payload.(model.ChallengePayload)
	require.True(t, ok)
	assert.Equal(t, "C", payload.ChallengeID)
	assert.Equal(t, 2, payload.TargetValue)

	rows := f.rows("C")
	require.Len(t, rows, 1)
	assert.NotNil(t, rows[0].CompletedAt)
}

// Propriété : après toute séquence de mutations, la valeur stockée est
// l'agrégation des activités de la fenêtre.
func TestRandomMutationsConverge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, agg := range []model.Aggregation{model.AggregateCount, model.AggregateSum, model.AggregateMax} {
		t.Run(string(agg), func(t *testing.T) {
			f := newFixture(t)
			f.challenge("C", model.StatusActive, agg, 0)
			window := model.Challenge{StartDate: day(1), EndDate: day(10)}

			live := map[string]model.Activity{}
			for i := 0; i < 150; i++ {
				switch op := rng.Intn(3); {
				case op == 0 || len(live) == 0:
					a := f.put(model.Activity{UserID: "A", OccurredOn: day(rng.Intn(15)), MetricValue: 1 + rng.Intn(9)})
					live[a.ID] = a
				case op == 1:
					a := pick(rng, live)
					a.OccurredOn = day(rng.Intn(15))
					a.MetricValue = 1 + rng.Intn(9)
					live[a.ID] = f.put(a)
				default:
					a := pick(rng, live)
					f.remove(a.ID)
					delete(live, a.ID)
				}

				var inWindow []model.Activity
				for _, a := range live {
					if window.Contains(a.OccurredOn) {
						inWindow = append(inWindow, a)
					}
				}
				require.Equal(t, agg.Reduce(inWindow), f.value("A", "C"), "step %d", i)
			}
		})
	}
}

func pick(rng *rand.Rand, m map[string]model.Activity) model.Activity {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// ordre des maps non déterministe
	sort.Strings(keys)
	return m[keys[rng.Intn(len(keys))]]
}

func TestActivationScenario(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusUpcoming, model.AggregateCount, 0)

	seedActivationUsers(t, f, 10)

	res, err := f.agg.OnChallengeActivated(context.Background(), "C")
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 10, res.Processed)
	assert.Equal(t, 4, res.Batches)

	rows := f.rows("C")
	require.Len(t, rows, 10)
	seen := map[string]bool{}
	for _, p := range rows {
		assert.False(t, seen[p.UserID], "duplicate row for %s", p.UserID)
		seen[p.UserID] = true
		assert.Equal(t, expectedActivationValue(p.UserID), p.CurrentValue)
	}
	assert.False(t, seen["outsider"])

	again, err := f.agg.OnChallengeActivated(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Processed)
	assert.Len(t, f.rows("C"), 10)
}

// seedActivationUsers écrit les activités sans déclencher de recalcul :
// le challenge n'est pas encore actif.
func seedActivationUsers(t *testing.T, f *fixture, n int) {
	t.Helper()
	require.NoError(t, f.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for i := 0; i < n; i++ {
			userID := fmt.Sprintf("u%02d", i)
			for j := 0; j < 1+i%3; j++ {
				a := model.Activity{
					ID: fmt.Sprintf("%s-%d", userID, j), UserID: userID,
					OccurredOn: day(2 + j), MetricValue: 1, LoggedAt: time.Now(),
				}
				if err := tx.InsertActivity(ctx, &a); err != nil {
					return err
				}
			}
		}
		return tx.InsertActivity(ctx, &model.Activity{
			ID: "outsider-1", UserID: "outsider", OccurredOn: day(25), MetricValue: 1,
		})
	}))
}

func expectedActivationValue(userID string) int {
	var i int
	fmt.Sscanf(userID, "u%02d", &i)
	return 1 + i%3
}

// cancellingStore annule le contexte après n transactions
type cancellingStore struct {
	store.Store
	mu     sync.Mutex
	calls  int
	after  int
	cancel context.CancelFunc
}

func (s *cancellingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.Store.WithTx(ctx, fn)
	s.mu.Lock()
	s.calls++
	if s.calls == s.after {
		s.cancel()
	}
	s.mu.Unlock()
	return err
}

func TestActivationIsResumable(t *testing.T) {
	f := newFixture(t)
	f.challenge("C", model.StatusUpcoming, model.AggregateCount, 0)
	seedActivationUsers(t, f, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 1 lecture du challenge + 1 page + 3 recalculs
	cs := &cancellingStore{Store: f.store, after: 5, cancel: cancel}
	agg := NewAggregator(cs, nil, Options{BatchSize: 3, Workers: 1})

	res, err := agg.OnChallengeActivated(ctx, "C")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Done)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, "u02", res.Cursor)
	assert.Len(t, f.rows("C"), 3)

	res, err = f.agg.ResumeActivation(context.Background(), "C", res.Cursor)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 7, res.Processed)
	assert.Len(t, f.rows("C"), 10)
}

func TestActivationUnknownChallenge(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.OnChallengeActivated(context.Background(), "missing")
	require.Error(t, err)
}
