package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

func (h *Handler) GetUserNotifications(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := requireSelf(r, userID); err != nil {
		utils.Error(w, err)
		return
	}

	limit, err := utils.QueryInt(r, "limit", 50)
	if err != nil {
		utils.Error(w, err)
		return
	}

	notifications, err := h.Notifications.List(r.Context(), userID, limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, notifications)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Notifications.MarkRead(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, "notification marked as read")
}
