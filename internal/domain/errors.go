package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so sentinel comparisons survive wrapping with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"

	// Pipeline failure classes.
	ErrCodeIngestion  = "INGESTION_ERROR"
	ErrCodeEncoding   = "ENCODING_ERROR"
	ErrCodeRetrieval  = "RETRIEVAL_ERROR"
	ErrCodeGeneration = "GENERATION_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTopK          = NewDomainError(ErrCodeValidation, "top_k out of range")
)

// Not found errors
var (
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Pipeline errors
var (
	ErrEmptyDocument      = NewDomainError(ErrCodeIngestion, "document has no text")
	ErrMalformedRecord    = NewDomainError(ErrCodeIngestion, "malformed source record")
	ErrDimensionMismatch  = NewDomainError(ErrCodeEncoding, "embedding dimension does not match vector store")
	ErrEncoderUnavailable = NewDomainError(ErrCodeEncoding, "embedding encoder unavailable")
	ErrStoreUnavailable   = NewDomainError(ErrCodeRetrieval, "vector store unavailable")
	ErrGenerationFailed   = NewDomainError(ErrCodeGeneration, "generation failed after retries")
)

// NewIngestionError marks a single source document as unusable.
func NewIngestionError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeIngestion, message, err)
}

// NewEncodingError reports an encoder failure.
func NewEncodingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEncoding, message, err)
}

// NewRetrievalError reports a vector store failure.
func NewRetrievalError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRetrieval, message, err)
}

// NewGenerationError wraps the last cause after the model call exhausted its attempts.
func NewGenerationError(attempts int, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, fmt.Sprintf("generation failed after %d attempts", attempts), err)
}

// HasCode reports whether err wraps a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
