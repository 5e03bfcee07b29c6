// Package testutil holds helpers shared by the HTTP tests.
package testutil

import (
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/golang-jwt/jwt/v4"
)

// IssueToken signs an HS256 token with the claims the auth middleware reads.
func IssueToken(secret []byte, userID int, role models.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
