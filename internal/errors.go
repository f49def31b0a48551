package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal   ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRunAt     ErrorCode = "INVALID_RUN_AT"

	ErrCodeDirectoryUnavailable ErrorCode = "DIRECTORY_UNAVAILABLE"
	ErrCodeDirectoryQuery       ErrorCode = "DIRECTORY_QUERY_ERROR"
	ErrCodeDirectoryModify      ErrorCode = "DIRECTORY_MODIFY_ERROR"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeNoUsersFound       ErrorCode = "NO_USERS_FOUND"
	ErrCodeIncompleteUserInfo ErrorCode = "INCOMPLETE_USER_INFO"
	ErrCodeInvalidTaskType    ErrorCode = "INVALID_TASK_TYPE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so errors.Is works
// against the sentinel values below regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Sentinels for errors.Is. Never mutate them; use the constructors below to
// build errors that carry a cause.
var (
	ErrDirectoryUnavailable = NewExternalError("directory service unavailable", ErrCodeDirectoryUnavailable, nil)
	ErrDirectoryQuery       = NewExternalError("directory search failed", ErrCodeDirectoryQuery, nil)
	ErrDirectoryModify      = NewExternalError("directory modify rejected", ErrCodeDirectoryModify, nil)
	ErrUserNotFound         = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrNoUsersFound         = NewNotFoundError("no users found", ErrCodeNoUsersFound)
	ErrIncompleteUserInfo   = NewValidationError("incomplete user information", ErrCodeIncompleteUserInfo)
	ErrInvalidTaskType      = NewValidationError("invalid task type", ErrCodeInvalidTaskType)
)

func NewDirectoryUnavailableError(cause error) *AppError {
	return NewExternalError("directory service unavailable", ErrCodeDirectoryUnavailable, cause)
}

func NewDirectoryQueryError(cause error) *AppError {
	return NewExternalError("directory search failed", ErrCodeDirectoryQuery, cause)
}

func NewDirectoryModifyError(cause error) *AppError {
	return NewExternalError("directory modify rejected", ErrCodeDirectoryModify, cause)
}

func NewUserNotFoundError(username string) *AppError {
	return NewNotFoundError(fmt.Sprintf("user %q not found", username), ErrCodeUserNotFound)
}

func NewIncompleteUserInfoError(username string, missing ...string) *AppError {
	return NewValidationError(
		fmt.Sprintf("incomplete user information for %q: missing %s", username, strings.Join(missing, ", ")),
		ErrCodeIncompleteUserInfo,
	)
}

func NewInvalidTaskTypeError(taskType string) *AppError {
	return NewValidationError(fmt.Sprintf("invalid task type %q", taskType), ErrCodeInvalidTaskType)
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error string `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e.GetDetailedMessage()}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
