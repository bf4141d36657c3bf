package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var jwtSecret []byte

// AppClaims represents the custom claims for the JWT. The subject is
// the stable user id issued by the external identity provider.
type AppClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Init loads the signing secret. Without JWT_SECRET the server runs in
// development mode: socket authentication trusts bare identity
// payloads and the HTTP API rejects everything.
func Init() {
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET not set; development mode, identities are trusted as presented")
	}
}

// Enabled reports whether token validation is configured.
func Enabled() bool {
	return len(jwtSecret) > 0
}

// IssueToken signs claims for userID/username. Used by tooling and
// tests; production tokens come from the identity provider sharing the
// same secret.
func IssueToken(userID, username string, ttl time.Duration) (string, error) {
	claims := &AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT validates the token signature and expiry and returns the
// claims.
func ParseJWT(tokenString string) (*AppClaims, error) {
	claims := &AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
