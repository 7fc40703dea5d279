package server

import (
	"errors"
	"net/http"

	"planning-poker/internal/estimation"

	"github.com/gin-gonic/gin"
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, estimation.ErrEmptyName),
		errors.Is(err, estimation.ErrUnknownPhase),
		errors.Is(err, estimation.ErrInvalidValue),
		errors.Is(err, estimation.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, estimation.ErrNameTaken),
		errors.Is(err, estimation.ErrRevealed),
		errors.Is(err, errSessionRunning):
		return http.StatusConflict
	case errors.Is(err, estimation.ErrNotParticipant),
		errors.Is(err, estimation.ErrAdminRequired):
		return http.StatusForbidden
	case errors.Is(err, estimation.ErrAdminDenied):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}
