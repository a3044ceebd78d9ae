// Package httpx holds the JSON request/response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/config"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

// WriteError translates an error into a response status plus a stable error
// code. Internal causes are logged, never returned to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeOf(err)

	message := "internal server error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	if code == "" {
		code = "internal"
	}

	l := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		l.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}

	WriteJSON(w, status, errorBody{Error: message, Code: code})
}
