package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORSMiddleware autorise toutes les origines ; le preflight répond 204
func CORSMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", HeaderDevUserID, HeaderDevRole}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)(next)
}
