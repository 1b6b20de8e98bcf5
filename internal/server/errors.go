package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrLedgerUnavailable indicates the server runs without a database
type ErrLedgerUnavailable struct{}

func (e *ErrLedgerUnavailable) Error() string {
	return "run ledger not configured"
}

// ErrRunNotFound indicates a ledger lookup found nothing
type ErrRunNotFound struct {
	ID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		ledgerErr     *ErrLedgerUnavailable
		runErr        *ErrRunNotFound
		stageErr      *pipeline.StageError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &runErr), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ledgerErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
