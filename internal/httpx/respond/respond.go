// Package respond writes the JSON envelopes shared by every endpoint.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/isdelr/ender-auth/internal/apperr"
	"github.com/rs/zerolog/hlog"
)

// Failure is the body of every error response.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Fail writes a {success:false, message} body.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Failure{Success: false, Message: message})
}

// Renderer maps classified errors to responses.
type Renderer struct {
	Production bool
}

// Error logs err and writes it to the client. Server-side failures use
// generic as their message in production and carry the cause otherwise.
func (rr Renderer) Error(w http.ResponseWriter, r *http.Request, err error, generic string) {
	ae := apperr.From(err)
	status := ae.Kind.Status()
	logger := hlog.FromRequest(r)

	message := ae.Message
	if status >= http.StatusInternalServerError {
		logger.Error().Err(ae.Err).Str("kind", ae.Kind.String()).Str("path", r.URL.Path).Msg(generic)
		switch {
		case rr.Production:
			message = generic
		case ae.Err != nil:
			message = ae.Error()
		}
	} else {
		logger.Warn().Str("kind", ae.Kind.String()).Str("path", r.URL.Path).Msg(ae.Message)
	}

	Fail(w, status, message)
}
