package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnauthenticated    = errors.New("no active session")
	ErrForbidden          = errors.New("access forbidden")
	ErrHiveNotFound       = errors.New("hive not found")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrKeyNotFound        = errors.New("key not found")
)

// AuthErrorKind separates credential problems from transport problems.
type AuthErrorKind string

const (
	AuthRejected    AuthErrorKind = "rejected"
	AuthUnavailable AuthErrorKind = "unavailable"
)

// AuthError is returned by login, register and demo-login when the backend
// refuses the request or cannot be reached.
type AuthError struct {
	Op   string
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err, picking the kind from the sentinel it carries.
func NewAuthError(op string, err error) *AuthError {
	kind := AuthRejected
	if errors.Is(err, ErrBackendUnavailable) {
		kind = AuthUnavailable
	}
	return &AuthError{Op: op, Kind: kind, Err: err}
}
