package download

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrValidation covers missing or malformed request fields.
	ErrValidation = errors.New("validation failed")
	// ErrExtraction means the engine could not resolve or fetch a URL.
	ErrExtraction = errors.New("extraction failed")
	// ErrNotReady is returned when delivery is attempted before a job finished.
	ErrNotReady = errors.New("download not completed")
	// ErrArtifactMissing means the job finished but its file is gone, usually
	// because it was already delivered.
	ErrArtifactMissing = errors.New("file not found")
)

// extractionError carries the engine's own message while matching
// ErrExtraction.
type extractionError struct{ cause error }

func extraction(cause error) error { return &extractionError{cause: cause} }

func (e *extractionError) Error() string        { return e.cause.Error() }
func (e *extractionError) Unwrap() error        { return e.cause }
func (e *extractionError) Is(target error) bool { return target == ErrExtraction }

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// statusFor maps a service error onto an HTTP status. ok is false for errors
// that should surface as a generic 500.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExtraction), errors.Is(err, ErrNotReady):
		return fiber.StatusBadRequest, true
	case errors.Is(err, ErrArtifactMissing):
		return fiber.StatusNotFound, true
	default:
		return fiber.StatusInternalServerError, false
	}
}
