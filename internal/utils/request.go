package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
)

func DecodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperror.Wrap(apperror.Validation, err, "invalid request body")
	}
	return nil
}

// QueryInt lit un entier de la query string ; def si absent
func QueryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperror.Validationf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

// QueryDate lit une date YYYY-MM-DD de la query string ; def si absente
func QueryDate(r *http.Request, key string, def civil.Date) (civil.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, apperror.Validationf("%s must be a YYYY-MM-DD date, got %q", key, v)
	}
	return d, nil
}
