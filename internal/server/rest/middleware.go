package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type ctxKey struct{}

// Identity is the caller proven by a valid access token.
type Identity struct {
	UserID string
	Email  string
}

// AccessTokenValidator is the part of auth.TokenService the gate needs.
type AccessTokenValidator interface {
	ValidateAccess(token string) (*auth.Claims, error)
}

// RequireAccessToken rejects requests without a valid bearer access token
// with 401. On success the Identity is available through IdentityFromContext
// and on the gin context. It never touches the store.
func RequireAccessToken(v AccessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, tokenMessage(err))
			return
		}

		claims, err := v.ValidateAccess(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, tokenMessage(err))
			return
		}

		id := Identity{UserID: claims.UserID, Email: claims.Email}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Next()
	}
}

// IdentityFromContext returns the Identity stored by RequireAccessToken.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func identityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", common.ErrTokenMissing
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) {
		return "", common.ErrTokenMalformed
	}
	if parts[1] == "" {
		return "", common.ErrTokenMissing
	}

	return parts[1], nil
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		return "Token is missing"
	case errors.Is(err, common.ErrTokenMalformed):
		return "Invalid token format"
	case errors.Is(err, common.ErrTokenExpired):
		return "Token has expired"
	default:
		return "Invalid token"
	}
}

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id, ok := identityFrom(c); ok {
			args = append(args, "user_id", id.UserID)
		}

		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request", args...)
			return
		}
		logger.Info(c.Request.Context(), "request", args...)
	}
}

// Recovery turns a panic into a plain 500 without leaking the panic value.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		abortWithError(c, http.StatusInternalServerError, msgInternal)
	})
}
