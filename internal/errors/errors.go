// Package errors provides enhanced error types with helpful context and suggestions
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Pipeline stage errors
	ErrCodeTranslationFailed ErrorCode = "TRANSLATION_FAILED"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeExecutionFailed   ErrorCode = "EXECUTION_FAILED"

	// Validation reasons
	ErrCodeEmptyQuery         ErrorCode = "EMPTY_QUERY"
	ErrCodeForbiddenKeyword   ErrorCode = "FORBIDDEN_KEYWORD"
	ErrCodeNotSelect          ErrorCode = "NOT_SELECT"
	ErrCodeMultipleStatements ErrorCode = "MULTIPLE_STATEMENTS"
	ErrCodeCommentPresent     ErrorCode = "COMMENT_PRESENT"
	ErrCodeDangerousFunction  ErrorCode = "DANGEROUS_FUNCTION"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodePoolExhausted      ErrorCode = "POOL_EXHAUSTED"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenCreation      ErrorCode = "TOKEN_CREATION_FAILED"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeInsufficientPerms  ErrorCode = "INSUFFICIENT_PERMISSIONS"

	// Input validation errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Cache errors
	ErrCodeCacheRead  ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWrite ErrorCode = "CACHE_WRITE_FAILED"

	// Catch-all
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// EnhancedError represents an error with additional context and helpful information
type EnhancedError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Details != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Details))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(" (cause: %v)", e.Cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *EnhancedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message with suggestions
func (e *EnhancedError) UserMessage() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(fmt.Sprintf("\n\nDetails: %s", e.Details))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// New creates a new EnhancedError
func New(code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Metadata: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with enhanced context
func Wrap(err error, code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Cause:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithDetails adds detailed information about the error
func (e *EnhancedError) WithDetails(details string) *EnhancedError {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion on how to fix the error
func (e *EnhancedError) WithSuggestion(suggestion string) *EnhancedError {
	e.Suggestion = suggestion
	return e
}

// WithMetadata adds additional metadata to the error
func (e *EnhancedError) WithMetadata(key string, value interface{}) *EnhancedError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Common error constructors with pre-configured messages

// NewTranslationError creates an error for SQL generation failures.
// Translation failures are terminal: the pipeline never retries or falls
// back to a different query.
func NewTranslationError(err error, question string) *EnhancedError {
	return Wrap(err, ErrCodeTranslationFailed, "Unable to generate SQL query").
		WithDetails(fmt.Sprintf("The translator could not produce a query for: '%s'", question)).
		WithSuggestion("Please rephrase your question to be more specific. For example: 'How many abnormal tests did Lab 12 report yesterday?'")
}

// NewValidationError creates an error carrying the validator's reason verbatim
func NewValidationError(reason ErrorCode, message string) *EnhancedError {
	return New(ErrCodeValidationFailed, "Generated SQL failed safety validation").
		WithDetails(message).
		WithSuggestion("Rephrase your question so it asks for data to be read, not changed.").
		WithMetadata("reason", string(reason))
}

// NewExecutionError creates an error for query execution failures
func NewExecutionError(err error, sql string) *EnhancedError {
	return Wrap(err, ErrCodeExecutionFailed, "Query execution failed").
		WithDetails(err.Error()).
		WithMetadata("sql", sql)
}

// NewPoolExhaustedError creates an error for connection pool exhaustion
func NewPoolExhaustedError(err error) *EnhancedError {
	return Wrap(err, ErrCodePoolExhausted, "No database connection available").
		WithDetails("All pooled connections are busy and the acquisition wait timed out").
		WithSuggestion("The service is at capacity. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewDatabaseConnectionError creates an error for database connection failures
func NewDatabaseConnectionError(err error) *EnhancedError {
	return Wrap(err, ErrCodeDatabaseConnection, "Database connection failed").
		WithDetails("Unable to connect to the database").
		WithSuggestion("This is an internal server error. The service may be experiencing issues. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewInvalidCredentialsError creates an error for authentication failures
func NewInvalidCredentialsError() *EnhancedError {
	return New(ErrCodeInvalidCredentials, "Invalid username or password").
		WithDetails("Authentication failed with the provided credentials").
		WithSuggestion("Please check your username and password and try again.")
}

// NewTokenCreationError creates an error for token creation failures
func NewTokenCreationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeTokenCreation, "Failed to create authentication token").
		WithDetails("The system was unable to generate an authentication token").
		WithSuggestion("Please try logging in again. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}

// NewNotAuthenticatedError creates an error for unauthenticated requests
func NewNotAuthenticatedError() *EnhancedError {
	return New(ErrCodeNotAuthenticated, "Authentication required").
		WithDetails("This endpoint requires authentication").
		WithSuggestion("Please log in using the /api/v1/auth/login endpoint, or include a valid API key in the 'X-API-Key' header.")
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field string, reason string) *EnhancedError {
	return New(ErrCodeInvalidInput, "Invalid input").
		WithDetails(fmt.Sprintf("Field '%s' is invalid: %s", field, reason)).
		WithSuggestion("Please check the API documentation for the expected format and try again.")
}

// NewInternalError creates a generic error that hides internal detail from the caller
func NewInternalError(err error) *EnhancedError {
	return Wrap(err, ErrCodeInternal, "An unexpected error occurred").
		WithSuggestion("Please try again. If the problem persists, contact support.")
}
