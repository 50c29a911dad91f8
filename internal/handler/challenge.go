package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req model.Challenge
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	c, err := h.Challenges.Create(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Created(w, c)
}

// GetChallenges liste les challenges, filtrés par ?status=
func (h *Handler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	status := model.ChallengeStatus(r.URL.Query().Get("status"))

	challenges, err := h.Challenges.List(r.Context(), status)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, challenges)
}

func (h *Handler) GetActiveChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.Challenges.ActiveChallenges(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, challenges)
}

func (h *Handler) GetChallengeById(w http.ResponseWriter, r *http.Request) {
	c, err := h.Challenges.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, c)
}

type statusRequest struct {
	Status model.ChallengeStatus `json:"status"`
}

// SetChallengeStatus change le statut ; l'activation recalcule la progression de l'historique
func (h *Handler) SetChallengeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	res, err := h.Challenges.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if res == nil {
		utils.Message(w, "challenge status updated")
		return
	}
	utils.Success(w, res)
}

// RecomputeChallenge rejoue le recalcul complet, ?cursor= pour reprendre un job interrompu
func (h *Handler) RecomputeChallenge(w http.ResponseWriter, r *http.Request) {
	res, err := h.Challenges.Recompute(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("cursor"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, res)
}

func (h *Handler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	if err := h.Challenges.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, "challenge deleted successfully")
}
