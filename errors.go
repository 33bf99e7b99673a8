package aclkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for ACLKit operations.
var (
	// ErrInvalidRole is returned when a role name is empty or malformed.
	ErrInvalidRole = errors.New("aclkit: invalid role")

	// ErrInvalidResource is returned when a resource token is empty.
	ErrInvalidResource = errors.New("aclkit: invalid resource")

	// ErrInvalidPermission is returned when a permission token is empty.
	ErrInvalidPermission = errors.New("aclkit: invalid permission")

	// ErrInvalidUser is returned when a user identifier is empty.
	ErrInvalidUser = errors.New("aclkit: invalid user")

	// ErrDenied is returned when a user lacks the required permission.
	ErrDenied = errors.New("aclkit: access denied")

	// ErrNoUserID is returned when no authenticated identity is available.
	// This is an authentication failure, distinct from ErrDenied.
	ErrNoUserID = errors.New("aclkit: no user ID")

	// ErrBackend is returned when the storage backend fails. Callers can
	// distinguish "cannot determine" from an actual denial through this.
	ErrBackend = errors.New("aclkit: backend error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Role       string // Role involved (if applicable)
	Resource   string // Resource involved (if applicable)
	Permission string // Permission involved (if applicable)
	UserID     string // User involved (if applicable)
	ActorID    string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithTarget adds resource and permission information to the error.
func (e *Error) WithTarget(resource, permission string) *Error {
	e.Resource = resource
	e.Permission = permission
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsDenied checks if an error is an authorization denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}

// IsNoUserID checks if an error is a missing-identity failure.
func IsNoUserID(err error) bool {
	return errors.Is(err, ErrNoUserID)
}

// IsBackendError checks if an error came from the storage backend.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsInvalidInput checks if an error is a validation failure on a role,
// resource, permission or user token.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidResource) ||
		errors.Is(err, ErrInvalidPermission) ||
		errors.Is(err, ErrInvalidUser)
}
