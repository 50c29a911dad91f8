package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
)

type NotificationType string

const (
	NotificationLike      NotificationType = "like"
	NotificationComment   NotificationType = "comment"
	NotificationFollow    NotificationType = "follow"
	NotificationEvent     NotificationType = "event"
	NotificationChallenge NotificationType = "challenge"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFollow, NotificationEvent, NotificationChallenge:
		return true
	}
	return false
}

// NotificationPayload est la donnée propre à chaque type de notification
type NotificationPayload interface {
	NotificationType() NotificationType
}

type LikePayload struct {
	ActorID    string `json:"actorId"`
	ActivityID string `json:"activityId"`
}

type CommentPayload struct {
	ActorID    string `json:"actorId"`
	ActivityID string `json:"activityId"`
	CommentID  string `json:"commentId"`
}

type FollowPayload struct {
	FollowerID string `json:"followerId"`
}

type EventPayload struct {
	EventID  string    `json:"eventId"`
	StartsAt time.Time `json:"startsAt"`
}

type ChallengePayload struct {
	ChallengeID  string `json:"challengeId"`
	CurrentValue int    `json:"currentValue"`
	TargetValue  int    `json:"targetValue"`
	Unit         string `json:"unit"`
}

func (LikePayload) NotificationType() NotificationType      { return NotificationLike }
func (CommentPayload) NotificationType() NotificationType   { return NotificationComment }
func (FollowPayload) NotificationType() NotificationType    { return NotificationFollow }
func (EventPayload) NotificationType() NotificationType     { return NotificationEvent }
func (ChallengePayload) NotificationType() NotificationType { return NotificationChallenge }

type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Type      NotificationType    `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   NotificationPayload `json:"-"`
	Read      bool                `json:"read"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Validate vérifie que le type est connu et cohérent avec le payload
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return apperror.Validationf("notification recipient is required")
	}
	if !n.Type.Valid() {
		return apperror.Validationf("unknown notification type %q", n.Type)
	}
	if n.Payload != nil && n.Payload.NotificationType() != n.Type {
		return apperror.Validationf("payload of type %q does not match notification type %q",
			n.Payload.NotificationType(), n.Type)
	}
	return nil
}

type notificationJSON struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	raw, err := EncodePayload(n.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(notificationJSON{
		ID: n.ID, UserID: n.UserID, Type: n.Type, Title: n.Title,
		Message: n.Message, Payload: raw, Read: n.Read, CreatedAt: n.CreatedAt,
	})
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var v notificationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	payload, err := DecodePayload(v.Type, v.Payload)
	if err != nil {
		return err
	}
	*n = Notification{
		ID: v.ID, UserID: v.UserID, Type: v.Type, Title: v.Title,
		Message: v.Message, Payload: payload, Read: v.Read, CreatedAt: v.CreatedAt,
	}
	return nil
}

// EncodePayload sérialise le payload (colonne jsonb)
func EncodePayload(p NotificationPayload) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// DecodePayload choisit la structure concrète à partir du type
func DecodePayload(t NotificationType, raw []byte) (NotificationPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p NotificationPayload
	switch t {
	case NotificationLike:
		p = &LikePayload{}
	case NotificationComment:
		p = &CommentPayload{}
	case NotificationFollow:
		p = &FollowPayload{}
	case NotificationEvent:
		p = &EventPayload{}
	case NotificationChallenge:
		p = &ChallengePayload{}
	default:
		return nil, fmt.Errorf("unknown notification type %q", t)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return deref(p), nil
}

func deref(p NotificationPayload) NotificationPayload {
	switch v := p.(type) {
	case *LikePayload:
		return *v
	case *CommentPayload:
		return *v
	case *FollowPayload:
		return *v
	case *EventPayload:
		return *v
	case *ChallengePayload:
		return *v
	}
	return p
}
