package middleware

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
)

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Error("panic recovered: %s", fmt.Sprint(v...))
}

// RecoveryMiddleware transforme un panic de handler en 500
func RecoveryMiddleware(next http.Handler) http.Handler {
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(next)
}
