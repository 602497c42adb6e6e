package tool

import (
	"errors"
	"fmt"
)

// Error codes carried by ToolError, used downstream to categorize failures
// without string matching.
const (
	// CodeDeclarationOnly marks invocation of a tool with no local implementation.
	CodeDeclarationOnly = "DECLARATION_ONLY"
	// CodeInvocationLimit marks a tool whose invocation budget is exhausted.
	CodeInvocationLimit = "INVOCATION_LIMIT_EXCEEDED"
	// CodeErrorLimit marks a tool whose invocation error budget is exhausted.
	CodeErrorLimit = "ERROR_LIMIT_EXCEEDED"
	// CodeValidation marks a schema / argument mismatch.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks an underlying implementation failure.
	CodeExecution = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool invocation.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Code    string `json:"code"`              // Error code for categorization
	Message string `json:"message"`           // Error message
	Err     error  `json:"-"`                 // Wrapped cause, if any
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap supports errors.Is / errors.As on the wrapped cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, code, message string) *ToolError {
	return &ToolError{Tool: tool, Code: code, Message: message}
}

// ErrorCode extracts the ToolError code from err, or CodeExecution when err
// is not a ToolError.
func ErrorCode(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return CodeExecution
}
