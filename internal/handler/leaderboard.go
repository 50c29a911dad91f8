package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

// GetChallengeLeaderboard récupère le classement d'un challenge
func (h *Handler) GetChallengeLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 50)
	if err != nil {
		utils.Error(w, err)
		return
	}

	entries, err := h.Ranking.Rank(r.Context(), mux.Vars(r)["challengeId"], limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, entries)
}

func (h *Handler) GetTopPerformers(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 10)
	if err != nil {
		utils.Error(w, err)
		return
	}

	entries, err := h.Ranking.Top(r.Context(), mux.Vars(r)["challengeId"], limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, entries)
}

// GetUserRank récupère le rang d'un utilisateur (0 virtuel s'il n'a aucune progression)
func (h *Handler) GetUserRank(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rank, err := h.Ranking.RankOf(r.Context(), vars["userId"], vars["challengeId"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, rank)
}

// GetNearbyUsers récupère les utilisateurs autour d'un utilisateur (?range=5)
func (h *Handler) GetNearbyUsers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rangeVal, err := utils.QueryInt(r, "range", 5)
	if err != nil {
		utils.Error(w, err)
		return
	}

	entries, err := h.Ranking.Nearby(r.Context(), vars["userId"], vars["challengeId"], rangeVal)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, entries)
}
