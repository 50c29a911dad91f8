package model

import "time"

// Progress est l'agrégat mis en cache d'un utilisateur sur un challenge.
// Il n'est jamais une source de vérité : il se recalcule à partir des activités.
type Progress struct {
	UserID          string     `json:"userId"`
	ChallengeID     string     `json:"challengeId"`
	CurrentValue    int        `json:"currentValue"`
	FirstActivityAt *time.Time `json:"firstActivityAt,omitempty"` // clé de départage du classement
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProgressKey identifie une ligne de progression
type ProgressKey struct {
	UserID      string
	ChallengeID string
}

func (p *Progress) Key() ProgressKey {
	return ProgressKey{UserID: p.UserID, ChallengeID: p.ChallengeID}
}
