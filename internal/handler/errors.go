package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/service"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const internalErrorMessage = "something went wrong, please try again"

// writeServiceError maps service errors to a status and a stable message.
// Storage detail is logged with the request id and never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, service.ErrEventNotFound.Error())
	case errors.Is(err, service.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, service.ErrCapacityExceeded.Error())
	case errors.Is(err, service.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, service.ErrAlreadyRegistered.Error())
	case errors.Is(err, service.ErrNoActiveRegistration):
		writeError(w, http.StatusNotFound, service.ErrNoActiveRegistration.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, service.ErrForbidden.Error())
	case errors.Is(err, service.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTransient):
		log.Printf("[http] reqid=%s transient failure: %v", chimiddleware.GetReqID(r.Context()), err)
		writeError(w, http.StatusServiceUnavailable, service.ErrTransient.Error())
	default:
		log.Printf("[http] reqid=%s internal error: %v", chimiddleware.GetReqID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}
