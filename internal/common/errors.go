// Package common defines shared constants and sentinel errors used across
// the server and the CLI client. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorAccountDeactivated = errors.New("account is deactivated")

	// Input validation errors. All of them wrap ErrorValidation.
	ErrorValidation         = errors.New("validation error")
	ErrorInvalidEmailFormat = fmt.Errorf("%w: invalid email format", ErrorValidation)
	ErrorPasswordTooShort   = fmt.Errorf("%w: password too short", ErrorValidation)
	ErrorPasswordTooLong    = fmt.Errorf("%w: password too long", ErrorValidation)
	ErrorNoFieldsToUpdate   = fmt.Errorf("%w: no valid fields to update", ErrorValidation)
	ErrorFieldTooLong       = fmt.Errorf("%w: field too long", ErrorValidation)

	// Bearer token errors.
	ErrTokenMissing   = errors.New("token is missing")
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
)
