package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a request failure so callers can branch on the class
// of the problem instead of matching message strings.
type ErrorKind string

const (
	// KindValidation indicates missing or malformed arguments.
	KindValidation ErrorKind = "validation"
	// KindPolicy indicates an argument that is present but violates a business rule.
	KindPolicy ErrorKind = "policy"
	// KindAuthentication indicates the caller is not authenticated where required.
	KindAuthentication ErrorKind = "authentication"
	// KindUnconfirmedEmail indicates the caller's email is not confirmed where required.
	KindUnconfirmedEmail ErrorKind = "unconfirmed-email"
	// KindInsufficientPrivilege indicates the caller's rank is below the required threshold.
	KindInsufficientPrivilege ErrorKind = "insufficient-privilege"
	// KindDuplicateName indicates a name uniqueness violation.
	KindDuplicateName ErrorKind = "duplicate-name"
	// KindDuplicateEmail indicates an email uniqueness violation.
	KindDuplicateEmail ErrorKind = "duplicate-email"
	// KindNotFound indicates a referenced entity is absent.
	KindNotFound ErrorKind = "not-found"
	// KindInternal indicates an unexpected failure scoped to the request.
	KindInternal ErrorKind = "internal"
)

// Error carries a stable kind alongside a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	// MissingArgs lists the unmet argument keys for validation failures.
	MissingArgs []string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports unmet argument requirements.
func ValidationError(missing []string) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     fmt.Sprintf("Required arguments missing: %v", missing),
		MissingArgs: missing,
	}
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the response status used by the API layer.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation, KindPolicy:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindUnconfirmedEmail, KindInsufficientPrivilege:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateName, KindDuplicateEmail:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidCredentials indicates login failure.
var ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "Invalid credentials"}
