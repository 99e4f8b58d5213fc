// Package auth issues and verifies the HS256 tokens guarding mutating
// back-office endpoints. Clients send the token in the X-Authorization
// header.
package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminSubject = "admin"

func secret() ([]byte, error) {
	s := os.Getenv("ADMIN_JWT_SECRET")
	if s == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET environment variable not set")
	}
	return []byte(s), nil
}

// IssueAdminToken creates a signed admin token valid for ttl.
func IssueAdminToken(ttl time.Duration) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(key)
}

// VerifyAdmin checks the X-Authorization header value (optionally
// prefixed with "Bearer ") and returns an error for anything but a
// valid, unexpired admin token.
func VerifyAdmin(header string) error {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if raw == "" {
		return fmt.Errorf("missing admin token")
	}
	key, err := secret()
	if err != nil {
		return err
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return fmt.Errorf("invalid admin token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != adminSubject {
		return fmt.Errorf("invalid admin token subject")
	}
	return nil
}
