// Package auth signs and verifies the value of the admin session cookie.
// The cookie carries only the session id; everything else stays server-side.
package auth

import (
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the standard registered claims plus the session id and whether
// the session was logged in when the token was issued.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Admin     bool   `json:"adm,omitempty"`
}

func GenerateToken(sessionID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return GenerateSessionToken(sessionID, false, secretKey, validityDuration)
}

func GenerateSessionToken(sessionID string, admin bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		SessionID: sessionID,
		Admin:     admin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSessionIDFromToken returns the session id of a valid token. Expired
// tokens yield common.ErrorSessionExpired, anything else that fails to verify
// yields common.ErrorInvalidToken.
func GetSessionIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseSessionToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

// ParseSessionToken verifies the signature and returns the claims. A token
// past its expiry still returns its claims, together with
// common.ErrorSessionExpired.
func ParseSessionToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, common.ErrorInvalidToken
	}

	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return claims, common.ErrorSessionExpired
	}

	return claims, nil
}
