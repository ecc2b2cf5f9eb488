package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("account disabled")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrUnknownOrder        = errors.New("unknown gateway order")
	ErrAlreadyFinalized    = errors.New("payment already finalized")
	ErrUpstreamGateway     = errors.New("payment gateway unavailable")
	ErrGatewayUnconfigured = errors.New("payment gateway not configured")
)

// ErrAdminAlreadyExists rejects a bootstrap grant once any admin exists,
// whether that was seen up front or by losing the bootstrap race. It is a
// kind of ErrForbidden.
var ErrAdminAlreadyExists = fmt.Errorf("an admin already exists: %w", ErrForbidden)

// Error codes returned to clients
const (
	CodeNotFound            = "ERR_NOT_FOUND"
	CodeDuplicateEmail      = "ERR_DUPLICATE_EMAIL"
	CodeInvalidInput        = "ERR_INVALID_INPUT"
	CodeBadRequest          = "ERR_BAD_REQUEST"
	CodeInvalidCredentials  = "ERR_INVALID_CREDENTIALS"
	CodeAccountDisabled     = "ERR_ACCOUNT_DISABLED"
	CodeUnauthorized        = "ERR_UNAUTHORIZED"
	CodeForbidden           = "ERR_FORBIDDEN"
	CodeInvalidSignature    = "ERR_INVALID_SIGNATURE"
	CodeUnknownOrder        = "ERR_UNKNOWN_ORDER"
	CodeConflict            = "ERR_CONFLICT"
	CodeAdminAlreadyExists  = "ERR_ADMIN_ALREADY_EXISTS"
	CodeUpstreamGateway     = "ERR_UPSTREAM_GATEWAY"
	CodeGatewayUnconfigured = "ERR_GATEWAY_UNCONFIGURED"
	CodeInternalError       = "ERR_INTERNAL"
	CodeRateLimited         = "ERR_RATE_LIMITED"
	CodeIdempotencyConflict = "ERR_IDEMPOTENCY_CONFLICT"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// DisabledError carries the reason an account was disabled.
type DisabledError struct {
	Reason string
}

func (e *DisabledError) Error() string {
	if e.Reason == "" {
		return ErrAccountDisabled.Error()
	}
	return ErrAccountDisabled.Error() + ": " + e.Reason
}

func (e *DisabledError) Unwrap() error {
	return ErrAccountDisabled
}

// Disabled wraps ErrAccountDisabled with the stored reason.
func Disabled(reason string) error {
	return &DisabledError{Reason: reason}
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequest reports a request the handler could not bind.
func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// FromError maps any error returned by the core to its transport form.
// Errors that are not one of the domain kinds become a generic 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr
	}

	var disabled *DisabledError
	if errors.As(err, &disabled) {
		msg := "account disabled"
		if disabled.Reason != "" {
			msg = "account disabled: " + disabled.Reason
		}
		return NewAppError(http.StatusUnauthorized, CodeAccountDisabled, msg, err)
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrBadRequest):
		return NewAppError(http.StatusBadRequest, CodeBadRequest, ErrBadRequest.Error(), err)
	case errors.Is(err, ErrDuplicateEmail):
		return NewAppError(http.StatusBadRequest, CodeDuplicateEmail, ErrDuplicateEmail.Error(), err)
	case errors.Is(err, ErrInvalidSignature):
		return NewAppError(http.StatusBadRequest, CodeInvalidSignature, "payment could not be verified", err)
	case errors.Is(err, ErrUnknownOrder):
		return NewAppError(http.StatusBadRequest, CodeUnknownOrder, "payment could not be verified", err)
	case errors.Is(err, ErrInvalidCredentials):
		return NewAppError(http.StatusUnauthorized, CodeInvalidCredentials, ErrInvalidCredentials.Error(), err)
	case errors.Is(err, ErrAccountDisabled):
		return NewAppError(http.StatusUnauthorized, CodeAccountDisabled, ErrAccountDisabled.Error(), err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, ErrUnauthorized.Error(), err)
	case errors.Is(err, ErrAdminAlreadyExists):
		return NewAppError(http.StatusForbidden, CodeAdminAlreadyExists, "an admin already exists", err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, CodeForbidden, ErrForbidden.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, ErrNotFound.Error(), err)
	case errors.Is(err, ErrAlreadyFinalized):
		return NewAppError(http.StatusConflict, CodeConflict, ErrAlreadyFinalized.Error(), err)
	case errors.Is(err, ErrUpstreamGateway):
		return NewAppError(http.StatusServiceUnavailable, CodeUpstreamGateway, "payment provider is unavailable, please retry", err)
	case errors.Is(err, ErrGatewayUnconfigured):
		return NewAppError(http.StatusInternalServerError, CodeGatewayUnconfigured, "payments are not available", err)
	}

	return InternalError(err)
}

// Invalid wraps ErrInvalidInput with a field-level message. The message is
// returned to the client as is.
func Invalid(message string) error {
	return &invalidError{message: message}
}

type invalidError struct {
	message string
}

func (e *invalidError) Error() string { return e.message }

func (e *invalidError) Unwrap() error { return ErrInvalidInput }
