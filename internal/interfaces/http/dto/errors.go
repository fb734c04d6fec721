package dto

import "net/http"

// Stable error codes returned by the API
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeAlreadyPaid       = "ALREADY_PAID"
	ErrCodeProviderRejected  = "PROVIDER_REJECTED"
	ErrCodeProviderConfig    = "PROVIDER_CONFIG"
	ErrCodeProviderAuth      = "PROVIDER_AUTH"
	ErrCodeProviderNetwork   = "PROVIDER_NETWORK"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// statusByCode maps API error codes to HTTP status codes
var statusByCode = map[string]int{
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeInvalidState:      http.StatusConflict,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeAlreadyPaid:       http.StatusConflict,
	ErrCodeProviderRejected:  http.StatusUnprocessableEntity,
	ErrCodeProviderConfig:    http.StatusUnprocessableEntity,
	ErrCodeProviderAuth:      http.StatusBadGateway,
	ErrCodeProviderNetwork:   http.StatusBadGateway,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// domainCodeMap normalizes domain error codes onto API error codes
var domainCodeMap = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeConflict,
	"INVALID_INPUT":        ErrCodeBadRequest,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
}

// GetHTTPStatus returns the HTTP status for an API error code
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// NormalizeErrorCode maps a domain error code to its API error code.
// Unknown domain codes pass through so new ones degrade gracefully.
func NormalizeErrorCode(code string) string {
	if normalized, ok := domainCodeMap[code]; ok {
		return normalized
	}
	return code
}
