package model

// UserIdentity est l'utilisateur authentifié par le fournisseur d'identité externe
type UserIdentity struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// RoleAdmin est la valeur du claim "role" des administrateurs
const RoleAdmin = "admin"
