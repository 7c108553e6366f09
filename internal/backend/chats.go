package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/matheus3301/chatsync/internal/chat"
)

// ChatPage is one page of the chat list.
type ChatPage struct {
	Chats   []chat.Chat `json:"chats"`
	HasMore bool        `json:"hasMore"`
}

// CreateChatRequest describes a new direct or group chat.
type CreateChatRequest struct {
	ParticipantID string   `json:"participantId,omitempty"`
	Participants  []string `json:"participants,omitempty"`
	IsGroup       bool     `json:"isGroup,omitempty"`
	GroupName     string   `json:"groupName,omitempty"`
}

type chatEnvelope struct {
	Chat *chat.Chat `json:"chat"`
}

// ListChats fetches a page of chats starting at offset.
func (c *Client) ListChats(ctx context.Context, limit, offset int) (*ChatPage, error) {
	const op = "list chats"
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	data, err := c.do(ctx, op, http.MethodGet, "/chat/all", nil, q)
	if err != nil {
		return nil, err
	}
	page, err := decodeJSON[ChatPage](op, data)
	if err != nil {
		return nil, err
	}
	if page.Chats == nil {
		page.Chats = []chat.Chat{}
	}
	return page, nil
}

// GetChat fetches a chat with its messages. It returns chat.ErrNotFound when
// the backend has no such chat.
func (c *Client) GetChat(ctx context.Context, chatID string) (*chat.Transcript, error) {
	const op = "get chat"
	data, err := c.do(ctx, op, http.MethodGet, "/chat/"+url.PathEscape(chatID), nil, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	t, err := decodeJSON[chat.Transcript](op, data)
	if err != nil {
		return nil, err
	}
	if t.Chat.ID == "" {
		return nil, chat.ErrNotFound
	}
	if t.Messages == nil {
		t.Messages = []chat.Message{}
	}
	return t, nil
}

// CreateChat creates a chat, or returns the existing direct chat.
func (c *Client) CreateChat(ctx context.Context, req CreateChatRequest) (*chat.Chat, error) {
	return c.chatCall(ctx, "create chat", http.MethodPost, "/chat/create", req)
}

// DeleteChat deletes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := c.do(ctx, "delete chat", http.MethodDelete, "/chat/delete", map[string]string{"chatId": chatID}, nil)
	return err
}

// ClearMessages deletes every message of a chat.
func (c *Client) ClearMessages(ctx context.Context, chatID string) error {
	_, err := c.do(ctx, "clear messages", http.MethodDelete, "/chat/messages/clear", map[string]string{"chatId": chatID}, nil)
	return err
}

// UpdateGroupName renames a group chat.
func (c *Client) UpdateGroupName(ctx context.Context, chatID, name string) (*chat.Chat, error) {
	return c.chatCall(ctx, "update group name", http.MethodPut, "/chat/group/name",
		map[string]string{"chatId": chatID, "groupName": name})
}

// UpdateGroupImage sets a group chat's image.
func (c *Client) UpdateGroupImage(ctx context.Context, chatID, image string) (*chat.Chat, error) {
	return c.chatCall(ctx, "update group image", http.MethodPut, "/chat/group/image",
		map[string]string{"chatId": chatID, "image": image})
}

// DeleteGroupName removes a group chat's name.
func (c *Client) DeleteGroupName(ctx context.Context, chatID string) (*chat.Chat, error) {
	return c.chatCall(ctx, "delete group name", http.MethodDelete, "/chat/group/name",
		map[string]string{"chatId": chatID})
}

// DeleteGroupImage removes a group chat's image.
func (c *Client) DeleteGroupImage(ctx context.Context, chatID string) (*chat.Chat, error) {
	return c.chatCall(ctx, "delete group image", http.MethodDelete, "/chat/group/image",
		map[string]string{"chatId": chatID})
}

func (c *Client) chatCall(ctx context.Context, op, method, path string, body any) (*chat.Chat, error) {
	data, err := c.do(ctx, op, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	env, err := decodeJSON[chatEnvelope](op, data)
	if err != nil {
		return nil, err
	}
	if env.Chat == nil {
		return nil, chat.RequestFailed(op, 0, errors.New("response has no chat"))
	}
	return env.Chat, nil
}
