package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation error")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// RecordError describes a failure tied to a single source record.
// It is collected into the run report instead of aborting the batch.
type RecordError struct {
	ExternalID string
	Message    string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %s", e.ExternalID, e.Message)
}

// NewRecordError creates a RecordError for the given external id.
func NewRecordError(externalID, format string, args ...any) *RecordError {
	return &RecordError{ExternalID: externalID, Message: fmt.Sprintf(format, args...)}
}
