package server

import (
	"errors"
	"fmt"
)

// ErrorCode classifies MCP tool errors
type ErrorCode string

const (
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// ToolError is returned from tool and resource handlers. The underlying
// cause, when there is one, stays reachable through errors.Is and errors.As.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	cause error
}

func (e *ToolError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error { return e.cause }

// Code returns the ErrorCode of the first *ToolError in err's chain, or "" if there is none
func Code(err error) ErrorCode {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func invalidInput(msg, details string) *ToolError {
	return &ToolError{Code: ErrInvalidInput, Message: msg, Details: details}
}

// invalidYear rejects years outside the accepted range; 0 is always allowed
func invalidYear(year int) *ToolError {
	return invalidInput("year out of range", fmt.Sprintf("year=%d, expected %d-%d or 0", year, minYear, maxYear))
}

func notFound(resource, details string) *ToolError {
	return &ToolError{Code: ErrNotFound, Message: resource + " not found", Details: details}
}

// databaseError names the failed query; the driver error becomes the details
func databaseError(operation string, err error) *ToolError {
	return &ToolError{
		Code:    ErrDatabaseError,
		Message: fmt.Sprintf("database %s failed", operation),
		Details: err.Error(),
		cause:   err,
	}
}

func internalError(msg string, err error) *ToolError {
	return &ToolError{Code: ErrInternalError, Message: msg, Details: err.Error(), cause: err}
}
