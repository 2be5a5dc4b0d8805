// Package services implements the business layer: workflow CRUD with
// include validation, the token ledger, and entitlement lookups.
package services

import (
	"errors"
	"fmt"

	"github.com/blockdeck/blockdeck/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when a workflow does not exist or is
	// not owned by the caller. Both cases look identical to the client.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// Validation errors (400 Bad Request).
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrEmptyOwnerID         = errors.New("owner ID cannot be empty")
	ErrInvalidDefinition    = errors.New("invalid workflow definition")

	// Include validation errors (422 Unprocessable Entity). The update is
	// rejected atomically: nothing is persisted.
	ErrSelfReference       = errors.New("workflow cannot include itself")
	ErrMissingReference    = errors.New("included workflow does not exist")
	ErrCrossOwnerReference = errors.New("included workflow belongs to another user")
	ErrIncludeCycle        = errors.New("workflow includes form a cycle")

	// Token ledger errors.
	ErrInsufficientTokens  = errors.New("insufficient token balance")
	ErrUnknownTokenProduct = errors.New("unknown token product")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrInvalidDefinition)
}

// IsIncludeValidationError checks if an error is an include-graph rejection.
func IsIncludeValidationError(err error) bool {
	return errors.Is(err, ErrSelfReference) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrCrossOwnerReference) ||
		errors.Is(err, ErrIncludeCycle)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IncludeErrorCode maps an include validation error to its wire code.
func IncludeErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSelfReference):
		return "SELF_REFERENCE"
	case errors.Is(err, ErrMissingReference):
		return "MISSING_REFERENCE"
	case errors.Is(err, ErrCrossOwnerReference):
		return "CROSS_OWNER_REFERENCE"
	case errors.Is(err, ErrIncludeCycle):
		return "CYCLE_DETECTED"
	default:
		return ""
	}
}
