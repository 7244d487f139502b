package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "taskboard"

// Claims is the JWT payload. The server middleware reads the same claims.
type Claims struct {
	jwt.RegisteredClaims
	TeamID    string `json:"tid"`
	UserID    string `json:"uid"`
	TokenType string `json:"typ"` // "access" or "refresh"
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned when a JWT cannot be parsed, has expired or
// carries malformed IDs.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IDs parses the team and user IDs carried by the token.
func (c *Claims) IDs() (teamID, userID uuid.UUID, err error) {
	teamID, err = uuid.Parse(c.TeamID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.Claims.IDs: team: %w", ErrInvalidToken)
	}
	userID, err = uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.Claims.IDs: user: %w", ErrInvalidToken)
	}
	return teamID, userID, nil
}

func IssueAccessToken(secret string, teamID, userID uuid.UUID, ttl time.Duration) (string, error) {
	return issueToken(secret, teamID, userID, TokenTypeAccess, ttl)
}

func IssueRefreshToken(secret string, teamID, userID uuid.UUID, ttl time.Duration) (string, error) {
	return issueToken(secret, teamID, userID, TokenTypeRefresh, ttl)
}

func issueToken(secret string, teamID, userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		TeamID:    teamID.String(),
		UserID:    userID.String(),
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses an HS256 token issued by this service and returns its
// claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}
