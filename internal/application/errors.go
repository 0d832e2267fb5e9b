package application

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNoSharedRepository = errors.New("no shared repository configured")
	ErrConfigExists       = errors.New("config file already exists")
	ErrSyncAborted        = errors.New("sync aborted")
)

// ValidationError represents an invalid command input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SyncError represents a sync run that could not start or complete
type SyncError struct {
	Direction string
	Reason    string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("cannot sync %s: %s", e.Direction, e.Reason)
}
