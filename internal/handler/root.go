package handler

import (
	"net/http"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

// RootHandler affiche toutes les routes disponibles de l'API
func RootHandler(w http.ResponseWriter, r *http.Request) {
	routes := map[string]interface{}{
		"name":    "PumpPro Challenges API",
		"version": "1.0.0",
		"status":  "running",
		"routes": map[string]interface{}{
			"activities": []map[string]string{
				{"method": "POST", "path": "/activities", "description": "Enregistrer une activité"},
				{"method": "PUT", "path": "/activities/{id}", "description": "Créer ou remplacer une activité (propriétaire)"},
				{"method": "DELETE", "path": "/activities/{id}", "description": "Supprimer une activité (propriétaire)"},
				{"method": "GET", "path": "/users/{userId}/activities?from&to", "description": "Activités d'un utilisateur sur une période"},
			},
			"challenges": []map[string]string{
				{"method": "GET", "path": "/challenges?status=", "description": "Récupérer les challenges"},
				{"method": "GET", "path": "/challenges/active", "description": "Challenges actifs"},
				{"method": "GET", "path": "/challenges/{id}", "description": "Récupérer un challenge par ID"},
				{"method": "POST", "path": "/challenges", "description": "Créer un challenge (admin)"},
				{"method": "PATCH", "path": "/challenges/{id}/status", "description": "Changer le statut (admin)"},
				{"method": "POST", "path": "/challenges/{id}/recompute?cursor=", "description": "Recalculer les progressions (admin)"},
				{"method": "DELETE", "path": "/challenges/{id}", "description": "Supprimer un challenge (admin)"},
			},
			"leaderboard": []map[string]string{
				{"method": "GET", "path": "/challenges/{challengeId}/leaderboard?limit", "description": "Classement d'un challenge"},
				{"method": "GET", "path": "/challenges/{challengeId}/leaderboard/top?limit", "description": "Meilleurs participants"},
				{"method": "GET", "path": "/challenges/{challengeId}/leaderboard/users/{userId}", "description": "Rang d'un utilisateur"},
				{"method": "GET", "path": "/challenges/{challengeId}/leaderboard/users/{userId}/nearby?range", "description": "Utilisateurs proches au classement"},
			},
			"notifications": []map[string]string{
				{"method": "GET", "path": "/users/{userId}/notifications?limit", "description": "Notifications d'un utilisateur"},
				{"method": "POST", "path": "/notifications/{id}/read", "description": "Marquer une notification comme lue"},
			},
			"system": []map[string]string{
				{"method": "GET", "path": "/health", "description": "Health check"},
				{"method": "GET", "path": "/metrics", "description": "Métriques prometheus"},
			},
		},
	}

	utils.Success(w, routes)
}
