package chat

import (
	"slices"
	"time"
)

// User is the reduced user summary embedded in chats and messages.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Chat is a direct or group conversation as listed by the backend.
type Chat struct {
	ID           string    `json:"_id"`
	Participants []User    `json:"participants"`
	IsGroup      bool      `json:"isGroup"`
	GroupName    string    `json:"groupName,omitempty"`
	GroupImage   string    `json:"groupImage,omitempty"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Status marks a message that has not been confirmed by the backend yet.
type Status string

const (
	StatusConfirmed Status = ""
	StatusSending   Status = "sending"
)

// Message is a single chat message. Content and Image are empty when absent.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content,omitempty"`
	Image     string    `json:"image,omitempty"`
	ReplyTo   *Message  `json:"replyTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Status    Status    `json:"status,omitempty"`
}

// Pending reports whether the message is an unconfirmed local echo.
func (m *Message) Pending() bool {
	return m.Status == StatusSending
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Chat) Clone() Chat {
	c.Participants = slices.Clone(c.Participants)
	if c.LastMessage != nil {
		lm := c.LastMessage.Clone()
		c.LastMessage = &lm
	}
	return c
}

// Clone returns a copy that shares no pointers with m.
func (m Message) Clone() Message {
	if m.ReplyTo != nil {
		r := m.ReplyTo.Clone()
		m.ReplyTo = &r
	}
	return m
}

// Reduced returns the trimmed form used when a message is quoted as a reply.
func (m Message) Reduced() *Message {
	return &Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Sender:    m.Sender,
		Content:   m.Content,
		Image:     m.Image,
		CreatedAt: m.CreatedAt,
	}
}

// Transcript is the open conversation: a chat and its messages in insertion order.
type Transcript struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// Clone deep-copies the transcript.
func (t Transcript) Clone() Transcript {
	out := Transcript{Chat: t.Chat.Clone(), Messages: make([]Message, len(t.Messages))}
	for i, m := range t.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// IndexOf returns the position of the message with the given id, or -1.
func (t *Transcript) IndexOf(id string) int {
	return slices.IndexFunc(t.Messages, func(m Message) bool { return m.ID == id })
}
