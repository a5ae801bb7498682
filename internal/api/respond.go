package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/services"
)

type errResponse struct {
	Error string `json:"error"`
}

// renderError maps a ServiceError onto an HTTP status; anything else is an
// opaque 500.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		render.Status(r, statusFor(se.Code))
		render.JSON(w, r, errResponse{Error: se.Message})
		return
	}
	logrus.WithError(err).Error("unhandled api error")
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, errResponse{Error: "internal error"})
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
