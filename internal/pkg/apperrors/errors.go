package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrForbidden      ErrorType = "FORBIDDEN"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrRateLimited    ErrorType = "RATE_LIMITED"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInvalidRequest:
		return "Check the request parameters."
	case ErrAuthFailed:
		return "Check the admin key header."
	case ErrRateLimited:
		return "Slow down and retry later."
	case ErrUpstream:
		return "The upstream service is unavailable, retry later."
	default:
		return ""
	}
}
