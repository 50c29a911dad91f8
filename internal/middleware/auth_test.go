package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
)

func TestParseToken(t *testing.T) {
	auth := NewAuth(&config.Config{JWTSecret: "s3cret"})

	tok, err := SignToken("s3cret", "alice", model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	user, err := auth.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ID)
	assert.True(t, user.IsAdmin)

	forged, err := SignToken("other", "alice", model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = auth.ParseToken(forged)
	assert.Error(t, err)

	expired, err := SignToken("s3cret", "alice", "", -time.Minute)
	require.NoError(t, err)
	_, err = auth.ParseToken(expired)
	assert.Error(t, err)
}

func TestParseToken_RequiresSubjectAndHS256(t *testing.T) {
	auth := NewAuth(&config.Config{JWTSecret: "s3cret"})

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "user"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(noSub)
	assert.ErrorContains(t, err, "missing subject")

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(other)
	assert.Error(t, err)
}

func TestAuthMiddleware_InjectsUser(t *testing.T) {
	auth := NewAuth(&config.Config{JWTSecret: "s3cret"})
	var seen model.UserIdentity
	h := auth.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := GetUserFromContext(r)
		require.NoError(t, err)
		seen = u
	}))

	tok, err := SignToken("s3cret", "bob", "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", seen.ID)
	assert.False(t, seen.IsAdmin)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnly(t *testing.T) {
	auth := NewAuth(&config.Config{AuthDisabled: true})
	h := auth.AuthMiddleware(auth.AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	for role, want := range map[string]int{model.RoleAdmin: http.StatusTeapot, "user": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderDevUserID, "u1")
		req.Header.Set(HeaderDevRole, role)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}
