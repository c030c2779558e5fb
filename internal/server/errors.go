package server

import (
	"net/http"

	apperrors "github.com/leadgate/leadgate/internal/errors"
)

// HandleError central handler for all errors
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

func apperrorsMethodNotAllowed() error {
	return apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
}
