package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrTokenAccountNotFound indicates no token account exists for the user yet.
	ErrTokenAccountNotFound = errors.New("token account not found")
)

// WorkflowError wraps workflow storage errors with operation context.
type WorkflowError struct {
	Op         string
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// TokenAccountError wraps token storage errors with operation context.
type TokenAccountError struct {
	Op     string
	UserID string
	Err    error
}

func (e *TokenAccountError) Error() string {
	return fmt.Sprintf("%s operation failed for token account %s: %v", e.Op, e.UserID, e.Err)
}

func (e *TokenAccountError) Unwrap() error {
	return e.Err
}

func (e *TokenAccountError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewTokenAccountError(op, userID string, err error) *TokenAccountError {
	return &TokenAccountError{Op: op, UserID: userID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsTokenAccountNotFound checks if an error indicates a missing token account.
func IsTokenAccountNotFound(err error) bool {
	return errors.Is(err, ErrTokenAccountNotFound)
}
