package model

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
)

// ChallengeStatus est piloté par l'administration, jamais déduit des dates
type ChallengeStatus string

const (
	StatusUpcoming  ChallengeStatus = "upcoming"
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Aggregation réduit les activités qualifiantes d'un utilisateur en une valeur
type Aggregation string

const (
	AggregateCount Aggregation = "count"
	AggregateSum   Aggregation = "sum"
	AggregateMax   Aggregation = "max"
)

func (a Aggregation) Valid() bool {
	switch a {
	case AggregateCount, AggregateSum, AggregateMax:
		return true
	}
	return false
}

// Reduce applique la fonction d'agrégation. Une liste vide donne 0.
func (a Aggregation) Reduce(activities []Activity) int {
	switch a {
	case AggregateSum:
		total := 0
		for _, act := range activities {
			total += act.MetricValue
		}
		return total
	case AggregateMax:
		best := 0
		for _, act := range activities {
			if act.MetricValue > best {
				best = act.MetricValue
			}
		}
		return best
	default:
		return len(activities)
	}
}

type Challenge struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	StartDate   civil.Date      `json:"startDate"`
	EndDate     civil.Date      `json:"endDate"`
	TargetValue int             `json:"targetValue"`
	Unit        string          `json:"unit"` // sessions, km, reps...
	Aggregation Aggregation     `json:"aggregation"`
	Status      ChallengeStatus `json:"status"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Validate vérifie un challenge avant sa création
func (c *Challenge) Validate() error {
	if !c.StartDate.IsValid() || !c.EndDate.IsValid() {
		return apperror.Validationf("challenge dates must be valid calendar dates")
	}
	if !c.EndDate.After(c.StartDate) {
		return apperror.Validationf("end date %s must be after start date %s", c.EndDate, c.StartDate)
	}
	if c.TargetValue < 0 {
		return apperror.Validationf("target value must not be negative")
	}
	if strings.TrimSpace(c.Unit) == "" {
		return apperror.Validationf("unit is required")
	}
	if !c.Aggregation.Valid() {
		return apperror.Validationf("unknown aggregation %q", c.Aggregation)
	}
	if !c.Status.Valid() {
		return apperror.Validationf("unknown status %q", c.Status)
	}
	return nil
}

// Contains indique si d tombe dans [StartDate, EndDate], bornes incluses
func (c *Challenge) Contains(d civil.Date) bool {
	return !d.Before(c.StartDate) && !d.After(c.EndDate)
}

func (c *Challenge) IsActive() bool {
	return c.Status == StatusActive
}
