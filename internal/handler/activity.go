package handler

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

type activityRequest struct {
	OccurredOn  civil.Date `json:"occurredOn"`
	MetricValue int        `json:"metricValue"`
	Kind        string     `json:"kind,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	LoggedAt    *time.Time `json:"loggedAt,omitempty"`
}

func (req activityRequest) toActivity(id, userID string) *model.Activity {
	a := &model.Activity{
		ID:          id,
		UserID:      userID,
		OccurredOn:  req.OccurredOn,
		MetricValue: req.MetricValue,
		Kind:        req.Kind,
		Notes:       req.Notes,
	}
	if req.LoggedAt != nil {
		a.LoggedAt = *req.LoggedAt
	}
	return a
}

// CreateActivity enregistre une activité pour l'utilisateur authentifié
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req activityRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	a, err := h.Activities.Put(r.Context(), req.toActivity("", user.ID))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Created(w, a)
}

// UpdateActivity crée ou remplace l'activité {id} ; réservé au propriétaire
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req activityRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	a, err := h.Activities.Put(r.Context(), req.toActivity(mux.Vars(r)["id"], user.ID))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, a)
}

func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Activities.Delete(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, "activity deleted successfully")
}

// GetUserActivities liste les activités d'un utilisateur sur [from, to]
// (par défaut les 30 derniers jours)
func (h *Handler) GetUserActivities(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	today := civil.DateOf(time.Now())
	to, err := utils.QueryDate(r, "to", today)
	if err != nil {
		utils.Error(w, err)
		return
	}
	from, err := utils.QueryDate(r, "from", to.AddDays(-30))
	if err != nil {
		utils.Error(w, err)
		return
	}

	activities, err := h.Activities.Query(r.Context(), userID, from, to)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, activities)
}
