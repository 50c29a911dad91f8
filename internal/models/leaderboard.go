package model

// RankingEntry est une ligne du classement d'un challenge, calculée à la lecture
type RankingEntry struct {
	UserID       string `json:"userId"`
	CurrentValue int    `json:"currentValue"`
	Rank         int    `json:"rank"`     // 1 + nombre de lignes strictement devant
	Position     int    `json:"position"` // ordre total, 1-based
}

type UserRank struct {
	UserID      string  `json:"userId"`
	ChallengeID string  `json:"challengeId"`
	Rank        int     `json:"rank"`
	Score       int     `json:"score"`
	Position    int     `json:"position"`
	TotalUsers  int     `json:"totalUsers"`
	Percentile  float64 `json:"percentile"` // Top X%
	Ranked      bool    `json:"ranked"`     // false : pas de ligne Progress, classé comme un 0 virtuel
}
