package dto

import "net/http"

// Error codes returned in the response envelope. Domain codes pass through unchanged.
const (
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeConflictingChallanState = "CONFLICTING_CHALLAN_STATE"
	ErrCodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	ErrCodeDraftExists             = "DRAFT_EXISTS"
	ErrCodeIncompletePayment       = "INCOMPLETE_PAYMENT"
	ErrCodeInvalidState            = "INVALID_STATE"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeVendorBusy              = "VENDOR_BUSY"
	ErrCodeBadRequest              = "BAD_REQUEST"
	ErrCodeRequestTooLarge         = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited             = "RATE_LIMITED"
	ErrCodeTimeout                 = "TIMEOUT"
	ErrCodeUnavailable             = "SERVICE_UNAVAILABLE"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeConflictingChallanState: http.StatusConflict,
	ErrCodeConcurrencyConflict:     http.StatusConflict,
	ErrCodeDraftExists:             http.StatusConflict,

	ErrCodeIncompletePayment: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodeVendorBusy: http.StatusLocked,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// legacyErrorCodes folds the finer grained codes raised by lower layers
// into the codes clients are documented to handle
var legacyErrorCodes = map[string]string{
	"INVALID_INPUT":    ErrCodeValidation,
	"INVALID_QUANTITY": ErrCodeValidation,
	"INVALID_COST":     ErrCodeValidation,
	"ALREADY_EXISTS":   ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts an alias to the documented code; other codes are returned as-is
func NormalizeErrorCode(code string) string {
	if normalized, ok := legacyErrorCodes[code]; ok {
		return normalized
	}
	return code
}
