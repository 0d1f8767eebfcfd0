package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	ClaimSubject = "sub"
	ClaimRole    = "role"
)

// ErrEmptySecret is returned when signing or verifying without a key.
var ErrEmptySecret = errors.New("jwt secret is empty")

// GenerateToken signs an HS256 token for subject in role. Production tokens
// come from the identity service; this is used by tooling and tests.
func GenerateToken(subject, role, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	claims := jwt.MapClaims{
		ClaimSubject: subject,
		ClaimRole:    role,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims verifies signature and expiry and returns the claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Subject extracts the subject and role claims as strings.
func Subject(claims jwt.MapClaims) (subject, role string, err error) {
	subject, _ = claims[ClaimSubject].(string)
	role, _ = claims[ClaimRole].(string)
	if subject == "" || role == "" {
		return "", "", fmt.Errorf("token is missing subject or role")
	}
	return subject, role, nil
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func ExpiresAt(claims jwt.MapClaims) time.Time {
	if exp, ok := claims["exp"].(float64); ok {
		return time.Unix(int64(exp), 0)
	}
	return time.Time{}
}
