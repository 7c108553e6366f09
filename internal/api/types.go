package api

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/chat"
)

type Empty struct{}

type StatusResponse struct {
	Profile      string `json:"profile"`
	Connection   string `json:"connection"`
	UserID       string `json:"userId"`
	Chats        int    `json:"chats"`
	HasMore      bool   `json:"hasMore"`
	ActiveChatID string `json:"activeChatId,omitempty"`
	UptimeMs     int64  `json:"uptimeMs"`
}

// ChatEntry is a listed chat with its unread flag for the current user.
type ChatEntry struct {
	chat.Chat
	Unread bool `json:"unread"`
}

// ListChatsRequest narrows the chat list to chats matching Search on their
// group name or on another participant's name.
type ListChatsRequest struct {
	Search string `json:"search,omitempty"`
}

type ChatListResponse struct {
	Chats   []ChatEntry `json:"chats"`
	HasMore bool        `json:"hasMore"`
}

type LoadMoreResponse struct {
	Loaded  bool `json:"loaded"`
	HasMore bool `json:"hasMore"`
	Chats   int  `json:"chats"`
}

type ChatIDRequest struct {
	ChatID string `json:"chatId"`
}

type TranscriptResponse struct {
	Transcript *chat.Transcript `json:"transcript,omitempty"`
}

type SendMessageRequest struct {
	ChatID    string `json:"chatId"`
	Content   string `json:"content,omitempty"`
	Image     string `json:"image,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type EditMessageRequest struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type MessageRef struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type MessageResponse struct {
	Message *chat.Message `json:"message"`
}

type CreateChatRequest = backend.CreateChatRequest

type GroupRequest struct {
	ChatID string `json:"chatId"`
	Value  string `json:"value,omitempty"`
}

type ChatResponse struct {
	Chat *chat.Chat `json:"chat"`
}

type IsUnreadRequest struct {
	ChatID  string        `json:"chatId"`
	Message *chat.Message `json:"message"`
}

type IsUnreadResponse struct {
	Unread bool `json:"unread"`
}

// WatchRequest selects bus namespaces to stream. Empty means store, message
// and connection events.
type WatchRequest struct {
	Namespaces []string `json:"namespaces,omitempty"`
}

type WatchEvent struct {
	EventID   string          `json:"eventId"`
	Profile   string          `json:"profile"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ListUsersRequest struct {
	Search string `json:"search,omitempty"`
}

type UserListResponse struct {
	Users []chat.User `json:"users"`
}
