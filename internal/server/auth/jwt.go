// Package auth mints and verifies the HS256 tokens that carry the
// authenticated display identity. The relay core never verifies identity
// itself; verification happens only at the durable-store API boundary.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/corkboard/internal/common"
)

// Claims extends the registered claims with the application-level identity
// used to stamp createdBy on durable notes.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"displayName"`
}

// GenerateToken issues a signed token for the given display identity.
func GenerateToken(displayName string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		DisplayName: displayName,
	})

	return token.SignedString(secretKey)
}

// IdentityFromToken verifies the token signature and returns the display
// identity it carries. Expired tokens map to common.ErrTokenExpired, any
// other verification failure to common.ErrInvalidToken.
func IdentityFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.DisplayName == "" {
		return "", common.ErrInvalidToken
	}

	return claims.DisplayName, nil
}
