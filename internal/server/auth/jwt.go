// Package auth issues and validates the signed tokens used by the API and
// hashes user passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tells access tokens and refresh tokens apart.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the payload of both token kinds. Refresh tokens carry no email,
// so a changed address is only picked up again from the database.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Kind   TokenKind `json:"kind"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService signs and validates HS256 tokens with a single process-wide
// secret. It keeps no state about issued tokens. Expiry is stored in whole
// seconds, so a token may expire up to one second before its ttl elapses.
type TokenService struct {
	secretKey                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewTokenService(secretKey []byte, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secretKey:                    secretKey,
		accessTokenValidityDuration:  accessTTL,
		refreshTokenValidityDuration: refreshTTL,
		now:                          time.Now,
	}
}

// Issue returns a fresh access/refresh pair for the user.
func (s *TokenService) Issue(userID, email string) (*TokenPair, error) {
	access, err := s.sign(Claims{UserID: userID, Email: email, Kind: KindAccess}, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(Claims{UserID: userID, Kind: KindRefresh}, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess parses an access token. See Validate for the errors.
func (s *TokenService) ValidateAccess(token string) (*Claims, error) {
	return s.Validate(token, KindAccess)
}

// ValidateRefresh parses a refresh token. See Validate for the errors.
func (s *TokenService) ValidateRefresh(token string) (*Claims, error) {
	return s.Validate(token, KindRefresh)
}

// Validate checks the signature, expiry and kind of token.
//
// It returns common.ErrTokenExpired once exp is reached and
// common.ErrTokenInvalid for everything else: bad signature, garbage input,
// a signing method other than HS256 (including "none"), a missing subject or
// a token of the other kind.
func (s *TokenService) Validate(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalid
	}

	if claims.Kind != kind || claims.UserID == "" {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return s.secretKey, nil
}

func (s *TokenService) sign(claims Claims, validity time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}
