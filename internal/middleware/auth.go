package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/utils"
)

// Context keys
type contextKey string

const userContextKey = contextKey("user")

// En mode AUTH_DISABLED, l'identité est lue dans ces en-têtes
const (
	HeaderDevUserID = "X-User-ID"
	HeaderDevRole   = "X-User-Role"
)

// Claims émis par le fournisseur d'identité : sub = id utilisateur
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret   []byte
	disabled bool
}

func NewAuth(cfg *config.Config) *Auth {
	return &Auth{secret: []byte(cfg.JWTSecret), disabled: cfg.AuthDisabled}
}

// AuthMiddleware valide le bearer token et injecte l'utilisateur dans le contexte
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.identify(r)
		if err != nil {
			utils.ErrorSimple(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// AdminOnly doit être chaîné après AuthMiddleware
func (a *Auth) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := GetUserFromContext(r)
		if err != nil {
			utils.ErrorSimple(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !user.IsAdmin {
			utils.ErrorSimple(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) identify(r *http.Request) (model.UserIdentity, error) {
	if a.disabled {
		id := strings.TrimSpace(r.Header.Get(HeaderDevUserID))
		if id == "" {
			return model.UserIdentity{}, errors.New("missing " + HeaderDevUserID + " header")
		}
		role := r.Header.Get(HeaderDevRole)
		return model.UserIdentity{ID: id, Role: role, IsAdmin: role == model.RoleAdmin}, nil
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return model.UserIdentity{}, errors.New("missing authorization token")
	}
	return a.ParseToken(strings.TrimPrefix(header, "Bearer "))
}

// ParseToken vérifie un token HS256 et retourne l'identité correspondante
func (a *Auth) ParseToken(raw string) (model.UserIdentity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.UserIdentity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return model.UserIdentity{}, errors.New("invalid token: missing subject")
	}

	return model.UserIdentity{
		ID:      claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		IsAdmin: claims.Role == model.RoleAdmin,
	}, nil
}

// SignToken émet un token HS256 ; utilisé par les outils de dev et les tests
func SignToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

func WithUser(ctx context.Context, user model.UserIdentity) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext récupère l'utilisateur depuis le contexte de la requête
func GetUserFromContext(r *http.Request) (model.UserIdentity, error) {
	user, ok := r.Context().Value(userContextKey).(model.UserIdentity)
	if !ok {
		return model.UserIdentity{}, fmt.Errorf("user not found in context")
	}
	return user, nil
}
