package model

import (
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
)

// MaxMetricValue borne la valeur d'une activité (colonne INTEGER)
const MaxMetricValue = math.MaxInt32

// Activity est une séance d'entraînement déclarée par un utilisateur.
// OccurredOn (et non LoggedAt) décide de l'appartenance à la fenêtre d'un challenge.
type Activity struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	OccurredOn  civil.Date `json:"occurredOn"`
	LoggedAt    time.Time  `json:"loggedAt"`
	MetricValue int        `json:"metricValue"`
	Kind        string     `json:"kind,omitempty"` // running, pushups, cycling...
	Notes       string     `json:"notes,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate vérifie une activité avant toute écriture
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return apperror.Validationf("activity owner is required")
	}
	if a.MetricValue < 1 {
		return apperror.Validationf("metric value must be positive, got %d", a.MetricValue)
	}
	if a.MetricValue > MaxMetricValue {
		return apperror.Validationf("metric value must not exceed %d, got %d", MaxMetricValue, a.MetricValue)
	}
	if !a.OccurredOn.IsValid() {
		return apperror.Validationf("occurred_on %q is not a valid date", a.OccurredOn.String())
	}
	return nil
}

// OwnedBy indique si l'activité appartient à userID
func (a *Activity) OwnedBy(userID string) bool {
	return a != nil && a.UserID == userID
}
