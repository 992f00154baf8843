package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation         = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrConflict           = NewError("CONFLICT", "resource conflict", http.StatusConflict)
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable", http.StatusServiceUnavailable)

	// ErrParse: rule text could not be turned into a valid rule.
	ErrParse = NewError("PARSE_ERROR", "rule text could not be parsed", http.StatusUnprocessableEntity)
	// ErrStore: the rule, task or audit store failed.
	ErrStore = NewError("STORE_ERROR", "rule store unavailable", http.StatusInternalServerError)
	// ErrAuditWrite is only ever logged; audit failures never reach callers.
	ErrAuditWrite = NewError("AUDIT_WRITE_ERROR", "audit event could not be written", http.StatusInternalServerError)
)

// permanentCodes are never worth retrying unless marked otherwise.
var permanentCodes = map[string]bool{
	ErrNotFound.Code:   true,
	ErrValidation.Code: true,
	ErrParse.Code:      true,
	ErrConflict.Code:   true,
}

// Error is an application error with a stable code and HTTP status. Values
// are immutable: every With* method returns a copy, so the sentinels above
// can be shared.
type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works on derived values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *Error) WithMessage(message string) *Error {
	c := e.clone()
	c.Message = message
	return c
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.clone()
	c.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return c
}

func (e *Error) AsRetryable() *Error {
	return e.withRetry(true)
}

func (e *Error) AsFatal() *Error {
	return e.withRetry(false)
}

func (e *Error) withRetry(retryable bool) *Error {
	c := e.clone()
	c.retryable = &retryable
	return c
}

// IsRetryable resolves, in order: an explicit AsRetryable/AsFatal mark, a
// decision carried by the cause, then the code.
func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var fatal interface{ IsFatal() bool }
		if errors.As(e.Cause, &fatal) {
			return !fatal.IsFatal()
		}
	}
	return !permanentCodes[e.Code]
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

// Wrap returns nil for a nil err.
func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsParse(err error) bool      { return errors.Is(err, ErrParse) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ToErrorResponse renders the JSON error body. Causes stay out of it; only
// the message and details a caller may see are included.
func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}
	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}
	return response
}
