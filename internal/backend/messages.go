package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/matheus3301/chatsync/internal/chat"
)

// SendRequest is the payload of a new message.
type SendRequest struct {
	ChatID    string `json:"chatId"`
	Content   string `json:"content,omitempty"`
	Image     string `json:"image,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type messageEnvelope struct {
	UserMessage   *chat.Message `json:"userMessage"`
	EditedMessage *chat.Message `json:"editedMessage"`
	Message       *chat.Message `json:"message"`
}

func (e *messageEnvelope) pick() *chat.Message {
	switch {
	case e.UserMessage != nil:
		return e.UserMessage
	case e.EditedMessage != nil:
		return e.EditedMessage
	default:
		return e.Message
	}
}

// SendMessage posts a message and returns the backend's copy.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*chat.Message, error) {
	return c.messageCall(ctx, "send message", http.MethodPost, "/chat/message/send", req)
}

// EditMessage replaces a message's text.
func (c *Client) EditMessage(ctx context.Context, messageID, content string) (*chat.Message, error) {
	return c.messageCall(ctx, "edit message", http.MethodPut, "/chat/message/edit",
		map[string]string{"messageId": messageID, "content": content})
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := c.do(ctx, "delete message", http.MethodDelete, "/chat/message/"+url.PathEscape(messageID), nil, nil)
	return err
}

func (c *Client) messageCall(ctx context.Context, op, method, path string, body any) (*chat.Message, error) {
	data, err := c.do(ctx, op, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	env, err := decodeJSON[messageEnvelope](op, data)
	if err != nil {
		return nil, err
	}
	m := env.pick()
	if m == nil {
		return nil, chat.RequestFailed(op, 0, errors.New("response has no message"))
	}
	return m, nil
}
