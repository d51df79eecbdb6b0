package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies one rejection class of the inventory API. The values
// match the "code" field of the API error envelope.
type ErrorCode string

const (
	// Business rule rejections
	ErrorCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrorCodeAssetNotFound      ErrorCode = "ASSET_NOT_FOUND"
	ErrorCodeDuplicateAssetCode ErrorCode = "DUPLICATE_ASSET_CODE"
	ErrorCodeDuplicatePhone     ErrorCode = "DUPLICATE_PHONE"
	ErrorCodeAssetAssigned      ErrorCode = "ASSET_ASSIGNED"
	ErrorCodeNotAssignable      ErrorCode = "ASSET_NOT_ASSIGNABLE"
	ErrorCodeInvalidStatus      ErrorCode = "INVALID_STATUS"

	// Request errors
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrorCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// Technical errors
	ErrorCodeTimeout  ErrorCode = "TIMEOUT_ERROR"
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured rejection from the inventory API.
type APIError struct {
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Cause      error             `json:"-"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the rejection is transient. Only server-side
// failures qualify; a business rule rejection never changes on retry.
func (e *APIError) Retryable() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

// Detail returns one detail value from the error envelope.
func (e *APIError) Detail(key string) string {
	return e.Details[key]
}

// WithDetail adds a detail to the error
func (e *APIError) WithDetail(key, value string) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// NewAPIError creates a structured API error.
func NewAPIError(code ErrorCode, message string, httpStatus int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// apiEnvelope mirrors the error payload produced by the REST handlers.
type apiEnvelope struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

// FromAPIResponse builds an APIError from a non-success API reply. Bodies
// that do not carry the error envelope still produce a usable error with
// the raw body as the message.
func FromAPIResponse(httpStatus int, body []byte) *APIError {
	apiErr := &APIError{
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Code = ErrorCode(envelope.Code)
		apiErr.Details = envelope.Details
	} else {
		apiErr.Message = string(body)
	}

	if apiErr.Code == "" {
		apiErr.Code = codeForStatus(httpStatus)
	}
	return apiErr
}

// codeForStatus falls back to a generic code when the envelope carries none.
func codeForStatus(httpStatus int) ErrorCode {
	switch {
	case httpStatus == http.StatusNotFound:
		return ErrorCodeAssetNotFound
	case httpStatus == http.StatusRequestTimeout:
		return ErrorCodeTimeout
	case httpStatus >= http.StatusBadRequest && httpStatus < http.StatusInternalServerError:
		return ErrorCodeInvalidParameter
	default:
		return ErrorCodeInternal
	}
}

// HasCode reports whether err is an APIError carrying the given code. It
// follows wrapped error chains.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr.Code == code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
