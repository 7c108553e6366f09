package auth

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatsync/internal/chat"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestFromToken(t *testing.T) {
	tests := []struct {
		name     string
		claims   jwt.MapClaims
		fallback chat.User
		wantID   string
		wantName string
	}{
		{"userId claim", jwt.MapClaims{"userId": "u1", "name": "Ana"}, chat.User{}, "u1", "Ana"},
		{"subject claim", jwt.MapClaims{"sub": "u2"}, chat.User{}, "u2", ""},
		{"config wins", jwt.MapClaims{"userId": "u1", "name": "Ana"}, chat.User{Name: "Me"}, "u1", "Me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := FromToken(signed(t, tt.claims), tt.fallback)
			if err != nil {
				t.Fatalf("FromToken() error = %v", err)
			}
			if id.ID() != tt.wantID {
				t.Errorf("ID = %q, want %q", id.ID(), tt.wantID)
			}
			if id.User.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", id.User.Name, tt.wantName)
			}
		})
	}
}

func TestFromTokenWithoutToken(t *testing.T) {
	id, err := FromToken("", chat.User{ID: "cfg"})
	if err != nil {
		t.Fatal(err)
	}
	if id.ID() != "cfg" {
		t.Errorf("ID = %q, want cfg", id.ID())
	}

	if _, err := FromToken("", chat.User{}); !errors.Is(err, ErrNoUser) {
		t.Errorf("error = %v, want ErrNoUser", err)
	}
}

func TestFromTokenMalformed(t *testing.T) {
	if _, err := FromToken("not-a-jwt", chat.User{}); err == nil {
		t.Error("FromToken() expected error for malformed token")
	}
}
