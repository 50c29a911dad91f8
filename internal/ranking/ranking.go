// Package ranking calcule le classement d'un challenge à la lecture, à partir
// des progressions validées. Aucun cache.
//
// Une ligne à 0 (aucune activité qualifiante) est traitée comme une absence :
// elle n'apparaît pas dans le classement et RankOf la classe en 0 virtuel.
//
// Ordre : valeur décroissante, puis première activité qualifiante la plus
// ancienne (sans date en dernier), puis user_id croissant. Les ex aequo
// partagent le même rang ; Position reste un ordre total.
package ranking

import (
	"context"
	"sort"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

type View struct {
	store store.Store
}

func NewView(s store.Store) *View {
	return &View{store: s}
}

func (v *View) load(ctx context.Context, challengeID string) ([]model.Progress, error) {
	var rows []model.Progress
	err := v.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetChallenge(ctx, challengeID); err != nil {
			return err
		}
		var err error
		rows, err = tx.ListProgress(ctx, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	ranked := rows[:0]
	for _, p := range rows {
		if p.CurrentValue > 0 {
			ranked = append(ranked, p)
		}
	}
	sortRows(ranked)
	return ranked, nil
}

func less(a, b *model.Progress) bool {
	if a.CurrentValue != b.CurrentValue {
		return a.CurrentValue > b.CurrentValue
	}
	switch {
	case a.FirstActivityAt != nil && b.FirstActivityAt == nil:
		return true
	case a.FirstActivityAt == nil && b.FirstActivityAt != nil:
		return false
	case a.FirstActivityAt != nil && !a.FirstActivityAt.Equal(*b.FirstActivityAt):
		return a.FirstActivityAt.Before(*b.FirstActivityAt)
	}
	return a.UserID < b.UserID
}

func sortRows(rows []model.Progress) {
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}

// entries suppose rows déjà triées
func entries(rows []model.Progress) []model.RankingEntry {
	out := make([]model.RankingEntry, len(rows))
	rank := 1
	for i, p := range rows {
		if i > 0 && p.CurrentValue != rows[i-1].CurrentValue {
			rank = i + 1
		}
		out[i] = model.RankingEntry{
			UserID:       p.UserID,
			CurrentValue: p.CurrentValue,
			Rank:         rank,
			Position:     i + 1,
		}
	}
	return out
}

// Rank retourne le classement complet, tronqué à limit si limit > 0
func (v *View) Rank(ctx context.Context, challengeID string, limit int) ([]model.RankingEntry, error) {
	rows, err := v.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	out := entries(rows)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Top retourne les n premiers
func (v *View) Top(ctx context.Context, challengeID string, n int) ([]model.RankingEntry, error) {
	if n <= 0 {
		n = 10
	}
	return v.Rank(ctx, challengeID, n)
}

// RankOf retourne le rang de userID, cohérent avec Rank.
// Sans ligne de progression, l'utilisateur est classé comme une ligne virtuelle à 0.
func (v *View) RankOf(ctx context.Context, userID, challengeID string) (model.UserRank, error) {
	rows, err := v.load(ctx, challengeID)
	if err != nil {
		return model.UserRank{}, err
	}

	res := model.UserRank{UserID: userID, ChallengeID: challengeID}
	all := entries(rows)
	for _, e := range all {
		if e.UserID == userID {
			res.Rank = e.Rank
			res.Score = e.CurrentValue
			res.Position = e.Position
			res.TotalUsers = len(all)
			res.Ranked = true
			break
		}
	}

	if !res.Ranked {
		res.Rank = len(all) + 1
		res.Position = len(all) + 1
		res.TotalUsers = len(all) + 1
	}

	res.Percentile = float64(res.Rank) / float64(res.TotalUsers) * 100
	return res, nil
}

// Nearby retourne les lignes à au plus radius positions de userID.
// Un utilisateur absent est placé en dernière position.
func (v *View) Nearby(ctx context.Context, userID, challengeID string, radius int) ([]model.RankingEntry, error) {
	if radius < 0 {
		radius = 0
	}
	rows, err := v.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	all := entries(rows)
	if radius > len(all) {
		radius = len(all)
	}

	idx := len(all)
	for i, e := range all {
		if e.UserID == userID {
			idx = i
			break
		}
	}

	from := idx - radius
	if from < 0 {
		from = 0
	}
	to := idx + radius + 1
	if to > len(all) {
		to = len(all)
	}
	if from >= to {
		return []model.RankingEntry{}, nil
	}
	return all[from:to], nil
}
