// Package store définit la persistance transactionnelle des activités,
// des challenges, des progressions et des notifications.
package store

import (
	"context"

	"cloud.google.com/go/civil"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
)

// Store exécute fn dans une transaction : tout est validé ou rien ne l'est.
// Une erreur retournée par fn annule la transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close()
}

// Tx regroupe les opérations disponibles dans une transaction
type Tx interface {
	ActivityTx
	ChallengeTx
	ProgressTx
	NotificationTx
}

type ActivityTx interface {
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	InsertActivity(ctx context.Context, a *model.Activity) error
	UpdateActivity(ctx context.Context, a *model.Activity) error
	DeleteActivity(ctx context.Context, id string) error
	// ListActivities retourne les activités de userID avec OccurredOn dans [from, to]
	ListActivities(ctx context.Context, userID string, from, to civil.Date) ([]model.Activity, error)
	// UsersWithActivity pagine (par user_id croissant, strictement après afterUserID)
	// les utilisateurs ayant au moins une activité dans [from, to]
	UsersWithActivity(ctx context.Context, from, to civil.Date, afterUserID string, limit int) ([]string, error)
}

type ChallengeTx interface {
	InsertChallenge(ctx context.Context, c *model.Challenge) error
	GetChallenge(ctx context.Context, id string) (*model.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, id string, status model.ChallengeStatus) error
	// DeleteChallenge supprime aussi les progressions du challenge (cascade)
	DeleteChallenge(ctx context.Context, id string) error
	// ListChallenges filtre par statut, "" pour tous ; tri par date de début puis id
	ListChallenges(ctx context.Context, status model.ChallengeStatus) ([]model.Challenge, error)
}

type ProgressTx interface {
	// LockProgress crée la ligne à 0 si elle n'existe pas et la verrouille
	// jusqu'à la fin de la transaction
	LockProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error)
	SaveProgress(ctx context.Context, p *model.Progress) error
	GetProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error)
	ListProgress(ctx context.Context, challengeID string) ([]model.Progress, error)
}

type NotificationTx interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
