package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/progress"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

// NotificationService enregistre les notifications puis les diffuse si un Pusher est configuré
type NotificationService struct {
	store  store.Store
	pusher Pusher
	policy store.RetryPolicy
	now    func() time.Time
}

var _ progress.Emitter = (*NotificationService)(nil)

func NewNotificationService(s store.Store, pusher Pusher, policy store.RetryPolicy) *NotificationService {
	return &NotificationService{store: s, pusher: pusher, policy: policy, now: time.Now}
}

// Emit persiste n dans sa propre transaction. La diffusion est best effort.
func (s *NotificationService) Emit(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.Type == "" && n.Payload != nil {
		n.Type = n.Payload.NotificationType()
	}
	if err := n.Validate(); err != nil {
		return err
	}

	err := store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertNotification(ctx, n)
	})
	if err != nil {
		return err
	}

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, n); err != nil {
			logger.Warning("push of notification %s failed: %v", n.ID, err)
		}
	}
	return nil
}

// Send est la forme éclatée de Emit
func (s *NotificationService) Send(ctx context.Context, userID string, t model.NotificationType, title, message string, payload model.NotificationPayload) (*model.Notification, error) {
	n := &model.Notification{UserID: userID, Type: t, Title: title, Message: message, Payload: payload}
	if err := s.Emit(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, userID, limit)
		return err
	})
	if out == nil {
		out = []model.Notification{}
	}
	return out, err
}

// MarkRead réservé au destinataire
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return store.RunTx(ctx, s.store, s.policy, func(ctx context.Context, tx store.Tx) error {
		n, err := tx.GetNotification(ctx, id)
		if err != nil {
			return err
		}
		if n.UserID != userID {
			return apperror.Authorizationf("notification %s does not belong to user %s", id, userID)
		}
		return tx.MarkNotificationRead(ctx, id)
	})
}
