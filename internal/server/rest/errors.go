package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/gin-gonic/gin"
)

const msgInternal = "Internal server error"

// errMsg overrides the default message of err for a single endpoint.
type errMsg struct {
	err error
	msg string
}

// defaultMessages is searched in order, so more specific validation errors
// come before ErrorValidation.
var defaultMessages = []errMsg{
	{common.ErrTokenMissing, "Token is missing"},
	{common.ErrTokenMalformed, "Invalid token format"},
	{common.ErrTokenExpired, "Token has expired"},
	{common.ErrTokenInvalid, "Invalid token"},
	{common.ErrorInvalidCredentials, "Invalid credentials"},
	{common.ErrorAccountDeactivated, "Account is deactivated"},
	{common.ErrorUnauthorized, "Unauthorized"},
	{common.ErrorNotFound, "User not found"},
	{common.ErrorAlreadyExists, "User with this email already exists"},
	{common.ErrorInvalidEmailFormat, "Invalid email format"},
	{common.ErrorPasswordTooShort, "Password must be at least 6 characters long"},
	{common.ErrorPasswordTooLong, "Password must be at most 72 bytes long"},
	{common.ErrorNoFieldsToUpdate, "No valid fields to update"},
	{common.ErrorFieldTooLong, "Email and full name must be at most 255 characters"},
	{common.ErrorValidation, "Invalid request"},
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorInvalidCredentials),
		errors.Is(err, common.ErrorAccountDeactivated),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenMissing),
		errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenInvalid):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, overrides []errMsg) string {
	for _, m := range overrides {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	for _, m := range defaultMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return msgInternal
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
