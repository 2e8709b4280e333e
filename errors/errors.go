package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError    ErrorType = "VALIDATION_ERROR"
	NotFoundError      ErrorType = "NOT_FOUND"
	AuthError          ErrorType = "AUTHENTICATION_ERROR"
	ForbiddenError     ErrorType = "FORBIDDEN"
	InvalidStateError  ErrorType = "INVALID_STATE"
	ConflictError      ErrorType = "CONFLICT"
	GatewayErrorType   ErrorType = "GATEWAY_ERROR"
	AmountMismatchType ErrorType = "AMOUNT_MISMATCH"
	DatabaseError      ErrorType = "DATABASE_ERROR"
	ServerError        ErrorType = "SERVER_ERROR"
	RateLimitError     ErrorType = "RATE_LIMIT_EXCEEDED"
)

// AppError is a structured application error carrying the HTTP status the
// error middleware should render. Every error surfaced to a caller is one
// of these; nothing in this service is fatal to the process.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus == 0 {
		return getHTTPStatus(e.Type)
	}
	return e.HTTPStatus
}

// New creates a new AppError with the status implied by its type.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap attaches AppError context to a raw error.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper constructors for the common cases.

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(code, message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string, detail string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidState signals an operation that is not valid in the aggregate's
// current state, e.g. a second withdrawal while one is pending or a share
// payment after the trip's payment window closed.
func InvalidState(message string, detail string) *AppError {
	return &AppError{
		Type:       InvalidStateError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

// GatewayError wraps a failed or unverifiable external payment-provider
// interaction.
func GatewayError(err error, message string) *AppError {
	return &AppError{
		Type:       GatewayErrorType,
		Message:    message,
		Detail:     detailOf(err),
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

// AmountMismatch signals that a gateway captured a different amount than
// the transaction expected. The transaction is failed terminally.
func AmountMismatch(expected, captured string) *AppError {
	return &AppError{
		Type:       AmountMismatchType,
		Message:    "captured amount does not match transaction amount",
		Detail:     fmt.Sprintf("expected %s, gateway captured %s", expected, captured),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NewDatabaseError(err error) *AppError {
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func RateLimitExceeded(message string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		Detail:     fmt.Sprintf("retry after %d seconds", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func detailOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case InvalidStateError, ConflictError:
		return http.StatusConflict
	case GatewayErrorType:
		return http.StatusBadGateway
	case AmountMismatchType:
		return http.StatusUnprocessableEntity
	case RateLimitError:
		return http.StatusTooManyRequests
	case DatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
