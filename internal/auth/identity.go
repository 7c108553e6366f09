package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatsync/internal/chat"
)

// ErrNoUser is returned when neither the token nor the config name a user.
var ErrNoUser = errors.New("no user id in token or config")

// Identity is the signed-in user on whose behalf the engine acts.
type Identity struct {
	User  chat.User
	Token string
}

// ID returns the current user id.
func (i Identity) ID() string {
	return i.User.ID
}

// FromToken derives the identity from the bearer token. The token is issued and
// checked by the backend, so its signature is not verified here; only the
// claims are read. Explicit fields in fallback win over token claims.
func FromToken(token string, fallback chat.User) (Identity, error) {
	user := fallback
	if token != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return Identity{}, fmt.Errorf("parse token: %w", err)
		}
		if user.ID == "" {
			user.ID = stringClaim(claims, "userId", "_id", "id")
		}
		if user.ID == "" {
			user.ID, _ = claims.GetSubject()
		}
		if user.Name == "" {
			user.Name = stringClaim(claims, "name", "username")
		}
		if user.Avatar == "" {
			user.Avatar = stringClaim(claims, "avatar")
		}
	}
	if user.ID == "" {
		return Identity{}, ErrNoUser
	}
	return Identity{User: user, Token: token}, nil
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
