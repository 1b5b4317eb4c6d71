package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords with bcrypt. Every hash embeds its own
// random salt, and verification compares in constant time.
type PasswordHasher struct {
	cost   int
	logger logging.Logger

	decoyOnce sync.Once
	decoy     []byte
}

// maxPasswordBytes is the bcrypt input limit; longer inputs are truncated by
// the algorithm.
const maxPasswordBytes = 72

func NewPasswordHasher(cost int, logger logging.Logger) *PasswordHasher {
	return &PasswordHasher{cost: cost, logger: logger.With("module", "password_hasher")}
}

// Hash returns the bcrypt hash of password. Passwords over 72 bytes are
// rejected with common.ErrorPasswordTooLong since bcrypt would ignore the tail.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.ErrorPasswordTooLong
		}
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A hash that bcrypt cannot
// parse never matches; it is logged because it means the stored row is corrupt.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) bool {
	// Hash never accepts such a password, so it cannot match.
	if len(password) > maxPasswordBytes {
		h.SimulateVerify(password)
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.Error(ctx, "stored password hash is corrupt", "error", err)
	}
	return false
}

// SimulateVerify spends the time of a Verify against a hash of the configured
// cost and discards the result. Callers use it when there is no stored hash,
// so that unknown accounts answer as slowly as known ones.
func (h *PasswordHasher) SimulateVerify(password string) {
	h.decoyOnce.Do(func() {
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte("koulio-decoy-password"), h.cost)
	})
	if len(password) > maxPasswordBytes {
		password = password[:maxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(password))
}
