package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// signToken issues the HS256 bearer token understood by middleware.Auth.
func signToken(secret []byte, id domain.Identity, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":     id.ID,
		"name":    id.Name,
		"email":   id.Email,
		"role":    string(id.Role),
		"is_demo": id.IsDemo,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
