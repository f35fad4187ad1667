package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"watchstore/internal/models"
)

// DecodeIdentity reads id, email and name from an access token's payload.
// The signature is not checked: the client has no key and only uses the
// claims for display. Absent claims stay empty; only a token that is not a
// JWT at all is an error. Role is left to DeriveRole.
func DecodeIdentity(token string) (models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.User{}, fmt.Errorf("decode token: %w", err)
	}

	user := models.User{
		ID:    firstClaim(claims, "id", "user_id", "userId", "sub"),
		Email: firstClaim(claims, "email"),
		Name:  firstClaim(claims, "userName", "name"),
	}
	// Some backends build userName from empty first/last fields.
	if user.Name == "undefined undefined" {
		user.Name = ""
	}
	return user, nil
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
