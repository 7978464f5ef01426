package models

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable code and the HTTP status it maps to
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// AsAppError returns the AppError in err's chain, or wraps err as ErrInternal
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithError(err)
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: http.StatusInternalServerError,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Please upload valid image (JPG/PNG/WEBP).",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrUnsupportedFormat = &AppError{
		Code:       "UNSUPPORTED_FORMAT",
		Message:    "Unsupported image format",
		StatusCode: http.StatusUnsupportedMediaType,
	}

	ErrFileTooLarge = &AppError{
		Code:       "FILE_TOO_LARGE",
		Message:    "File too large (max 10MB)",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrMissingImage = &AppError{
		Code:       "MISSING_IMAGE",
		Message:    "Please upload photo first.",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrDecode = &AppError{
		Code:       "DECODE_ERROR",
		Message:    "Failed to read file.",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrTransform = &AppError{
		Code:       "TRANSFORM_ERROR",
		Message:    "Image processing failed, please retry",
		StatusCode: http.StatusInternalServerError,
	}

	ErrUpstream = &AppError{
		Code:       "UPSTREAM_ERROR",
		Message:    "Analysis failed, please retry",
		StatusCode: http.StatusBadGateway,
	}

	ErrUpstreamTimeout = &AppError{
		Code:       "UPSTREAM_TIMEOUT",
		Message:    "Analysis timed out, please retry",
		StatusCode: http.StatusGatewayTimeout,
	}

	ErrConfiguration = &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    "Analysis provider is not configured",
		StatusCode: http.StatusInternalServerError,
	}

	ErrBusy = &AppError{
		Code:       "BUSY",
		Message:    "An analysis is already in progress",
		StatusCode: http.StatusConflict,
	}

	ErrStale = &AppError{
		Code:       "STALE_RESPONSE",
		Message:    "Result discarded because the mode changed",
		StatusCode: http.StatusConflict,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Session not found",
		StatusCode: http.StatusNotFound,
	}

	ErrNotAligning = &AppError{
		Code:       "NOT_ALIGNING",
		Message:    "No alignment in progress",
		StatusCode: http.StatusConflict,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
	}
)
