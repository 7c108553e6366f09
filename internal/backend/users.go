package backend

import (
	"context"
	"net/http"

	"github.com/matheus3301/chatsync/internal/chat"
)

type usersEnvelope struct {
	Users []chat.User `json:"users"`
}

// ListUsers returns every user the current account can start a chat with.
func (c *Client) ListUsers(ctx context.Context) ([]chat.User, error) {
	const op = "list users"
	data, err := c.do(ctx, op, http.MethodGet, "/user/all", nil, nil)
	if err != nil {
		return nil, err
	}
	env, err := decodeJSON[usersEnvelope](op, data)
	if err != nil {
		return nil, err
	}
	if env.Users == nil {
		return []chat.User{}, nil
	}
	return env.Users, nil
}
