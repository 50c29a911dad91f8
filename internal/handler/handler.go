package handler

import (
	"net/http"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/middleware"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/ranking"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/services"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

type Handler struct {
	Activities    *services.ActivityService
	Challenges    *services.ChallengeService
	Notifications *services.NotificationService
	Ranking       *ranking.View
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.Message(w, "ok")
}

// currentUser lit l'utilisateur injecté par AuthMiddleware
func currentUser(r *http.Request) (model.UserIdentity, error) {
	user, err := middleware.GetUserFromContext(r)
	if err != nil {
		return user, apperror.Authorizationf("authentication required")
	}
	return user, nil
}

// requireSelf autorise l'utilisateur lui-même ou un admin
func requireSelf(r *http.Request, userID string) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if user.ID != userID && !user.IsAdmin {
		return apperror.Authorizationf("user %s cannot access resources of %s", user.ID, userID)
	}
	return nil
}
