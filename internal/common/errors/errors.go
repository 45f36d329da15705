// Package errors provides standardized error handling for the quitflow service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Onboarding / questionnaire errors
	ErrCodeConfigUnavailable ErrorCode = "CONFIG_UNAVAILABLE"
	ErrCodeFlowNotReady      ErrorCode = "FLOW_NOT_READY"

	// Identity errors
	ErrCodeNoSignedInUser ErrorCode = "NO_SIGNED_IN_USER"
	ErrCodeTokenInvalid   ErrorCode = "TOKEN_INVALID"

	// Persistence errors
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeDocumentNotFound  ErrorCode = "DOCUMENT_NOT_FOUND"

	// Habit tracking errors
	ErrCodeCheckInInvalid ErrorCode = "CHECKIN_INVALID"

	// Community errors
	ErrCodeSearchFailed     ErrorCode = "SEARCH_FAILED"
	ErrCodeLeaderboardError ErrorCode = "LEADERBOARD_ERROR"

	// Chat completion errors
	ErrCodeChatTimeout ErrorCode = "CHAT_TIMEOUT"
	ErrCodeChatFailed  ErrorCode = "CHAT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigUnavailableError signals that neither the bundled nor the remote
// questionnaire config yielded a valid decode. Fatal to session start.
func NewConfigUnavailableError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigUnavailable,
		Message:   "No valid questionnaire configuration available",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewNoSignedInUserError is returned when a persistence operation is attempted
// without an authenticated identity.
func NewNoSignedInUserError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSignedInUser,
		Message:   "Operation requires a signed-in user",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenInvalidError is returned for unverifiable bearer tokens.
func NewTokenInvalidError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenInvalid,
		Message:   "Bearer token could not be verified",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewPersistenceError wraps a failed durable write. Retryable: the caller may
// resubmit the identical payload.
func NewPersistenceError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Durable write failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewFlowNotReadyError is returned when a flow operation arrives while the
// controller is still loading or has failed.
func NewFlowNotReadyError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFlowNotReady,
		Message:   "Onboarding flow is not ready",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentNotFoundError signals a lookup for a document that was never
// written.
func NewDocumentNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentNotFound,
		Message:   "Document not found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCheckInInvalidError signals a malformed daily check-in.
func NewCheckInInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCheckInInvalid,
		Message:   "Check-in payload is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchError wraps a failed community post search.
func NewSearchError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Community search failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewChatTimeoutError signals that the chat-completion API did not answer in time.
func NewChatTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChatTimeout,
		Message:   "Chat completion timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewChatFailedError wraps a non-timeout chat-completion failure.
func NewChatFailedError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChatFailed,
		Message:   "Chat completion failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsRetryable reports whether the error is a retryable StandardError.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode, or "" for non-standard errors.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HTTPStatus maps an error to the status the API layer should respond with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNoSignedInUser, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeCheckInInvalid:
		return http.StatusBadRequest
	case ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case ErrCodeConfigUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeChatTimeout:
		return http.StatusGatewayTimeout
	case ErrCodePersistenceFailed, ErrCodeSearchFailed, ErrCodeLeaderboardError, ErrCodeChatFailed:
		return http.StatusBadGateway
	case ErrCodeFlowNotReady:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
