package dto

import "net/http"

// Error codes returned by the API
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAlreadyExists  = "ALREADY_EXISTS"
	ErrCodeInternal       = "INTERNAL_ERROR"

	ErrCodeChannelInactive  = "CHANNEL_INACTIVE"
	ErrCodeSessionNotActive = "SESSION_NOT_ACTIVE"
	ErrCodeNoRemoteNumber   = "NO_REMOTE_NUMBER"
	ErrCodeProviderError    = "PROVIDER_ERROR"
	ErrCodeInvalidCallback  = "INVALID_CALLBACK"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes absent from the table fall back to the prefix rules in
// GetHTTPStatus.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInvalidRequest:  http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidCallback: http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeInternal:        http.StatusInternalServerError,

	// State conflicts: the request is well formed but the aggregate
	// cannot take it in its current state
	ErrCodeChannelInactive:     http.StatusUnprocessableEntity,
	ErrCodeSessionNotActive:    http.StatusUnprocessableEntity,
	ErrCodeNoRemoteNumber:      http.StatusUnprocessableEntity,
	"SESSION_ALREADY_ARCHIVED": http.StatusUnprocessableEntity,
	"SESSION_ALREADY_CLOSED":   http.StatusUnprocessableEntity,
	"SESSION_ALREADY_ACTIVE":   http.StatusUnprocessableEntity,
	"INVALID_MESSAGE_STATE":    http.StatusUnprocessableEntity,

	// The upstream provider rejected or failed the delivery
	ErrCodeProviderError: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for a domain error code.
// Unmapped INVALID_* codes are client errors; everything else unknown is
// treated as internal.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if len(code) >= 8 && code[:8] == "INVALID_" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
