package handlers

import (
	"errors"
	"net/http"

	"dayplanner/internal/logger"
	"dayplanner/internal/planner"
	"dayplanner/internal/session"

	"go.uber.org/zap"
)

// mapServiceError turns the service error taxonomy into HTTP status codes.
// Anything unrecognized is a 500.
func mapServiceError(err error) int {
	switch {
	case errors.Is(err, planner.ErrValidation), errors.Is(err, session.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrUnauthenticated),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, planner.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrBusy), errors.Is(err, session.ErrAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, planner.ErrPersistence),
		errors.Is(err, session.ErrPersistence),
		errors.Is(err, session.ErrDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithServiceError(w http.ResponseWriter, err error, operation string) {
	status := mapServiceError(err)

	logLevel := zap.WarnLevel
	if status >= 500 {
		logLevel = zap.ErrorLevel
	}
	logger.Log(logLevel, "HTTP: service error",
		zap.String("operation", operation),
		zap.Int("http_status", status),
		zap.Error(err))

	responseWithError(w, status, err.Error())
}
