package api

import (
	"net/http"

	"github.com/fatih/color"
	"github.com/gorilla/mux"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/handler"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/metrics"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/middleware"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

func SetupRouter(h *handler.Handler, auth *middleware.Auth) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.LoggerMiddleware)

	// Root - API documentation
	r.HandleFunc("/", handler.RootHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Public reads
	r.HandleFunc("/users/{userId}/activities", h.GetUserActivities).Methods(http.MethodGet)
	r.HandleFunc("/challenges", h.GetChallenges).Methods(http.MethodGet)
	r.HandleFunc("/challenges/active", h.GetActiveChallenges).Methods(http.MethodGet)
	r.HandleFunc("/challenges/{id}", h.GetChallengeById).Methods(http.MethodGet)

	// Challenge leaderboard
	r.HandleFunc("/challenges/{challengeId}/leaderboard", h.GetChallengeLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/challenges/{challengeId}/leaderboard/top", h.GetTopPerformers).Methods(http.MethodGet)
	r.HandleFunc("/challenges/{challengeId}/leaderboard/users/{userId}", h.GetUserRank).Methods(http.MethodGet)
	r.HandleFunc("/challenges/{challengeId}/leaderboard/users/{userId}/nearby", h.GetNearbyUsers).Methods(http.MethodGet)

	// les sous-routeurs sont déclarés après les routes publiques
	authenticatedRoutes := r.NewRoute().Subrouter()
	authenticatedRoutes.Use(auth.AuthMiddleware)

	// Activities
	authenticatedRoutes.HandleFunc("/activities", h.CreateActivity).Methods(http.MethodPost)
	authenticatedRoutes.HandleFunc("/activities/{id}", h.UpdateActivity).Methods(http.MethodPut)
	authenticatedRoutes.HandleFunc("/activities/{id}", h.DeleteActivity).Methods(http.MethodDelete)

	// Notifications
	authenticatedRoutes.HandleFunc("/users/{userId}/notifications", h.GetUserNotifications).Methods(http.MethodGet)
	authenticatedRoutes.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost)

	adminRoutes := r.NewRoute().Subrouter()
	adminRoutes.Use(auth.AuthMiddleware, auth.AdminOnly)

	// Challenges (admin)
	adminRoutes.HandleFunc("/challenges", h.CreateChallenge).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/challenges/{id}/status", h.SetChallengeStatus).Methods(http.MethodPatch)
	adminRoutes.HandleFunc("/challenges/{id}/recompute", h.RecomputeChallenge).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/challenges/{id}", h.DeleteChallenge).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		color.Yellow("[404] %s %s (route non trouvée)", r.Method, r.URL.Path)
		utils.ErrorSimple(w, http.StatusNotFound, "route not found")
	})

	return middleware.RecoveryMiddleware(middleware.CORSMiddleware(r))
}
