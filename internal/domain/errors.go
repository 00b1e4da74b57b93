package domain

import "errors"

// Common errors used throughout the application.
//
// They fall into four categories: validation (rejected before any state is
// read), conflict (the request contradicts the group's current state),
// not-found, and transient (persistence unavailability; safe to retry).
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotOpen             = errors.New("group is not open for joining")
	ErrNotActive           = errors.New("group is not active")
	ErrAlreadyMember       = errors.New("address is already a member")
	ErrGroupFull           = errors.New("group is at capacity")
	ErrUnknownParticipant  = errors.New("address is not a participant")
	ErrAmountMismatch      = errors.New("amount does not match the contribution amount")
	ErrAlreadyContributed  = errors.New("already contributed this cycle")
	ErrNotRecipient        = errors.New("caller is not this cycle's recipient")
	ErrCycleIncomplete     = errors.New("not all participants have contributed")
	ErrNoRecipientAssigned = errors.New("payout turns have not been assigned")
	ErrTransient           = errors.New("transient storage failure")
)

// Error codes for standardized API error responses.
const (
	ErrCodeNotFound        = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeTransient       = "TRANSIENT"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
