package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/chatsync/internal/chat"
)

// Channel event names.
const (
	EventMessageNew       = "message:new"
	EventMessageEdited    = "message:edited"
	EventMessageDeleted   = "message:deleted"
	EventMessagesCleared  = "chat:messages-cleared"
	EventChatNew          = "chat:new"
	EventChatUpdate       = "chat:update"
	EventChatGroupUpdated = "chat:group-updated"
	EventChatDeleted      = "chat:deleted"
)

var (
	// ErrUnknownEvent is returned by Decode for event names the engine ignores.
	ErrUnknownEvent = errors.New("unknown realtime event")
	// ErrMalformed is returned by Decode when a payload lacks required ids.
	ErrMalformed = errors.New("malformed realtime event")
)

// Envelope is the wire format of every frame on the channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is a decoded channel event.
type Event interface {
	Name() string
}

// MessageNew carries a message posted to a chat.
type MessageNew struct {
	Message chat.Message
}

// MessageEdited carries the updated copy of an edited message.
type MessageEdited struct {
	ChatID  string       `json:"chatId"`
	Message chat.Message `json:"message"`
}

// MessageDeleted names a message removed from a chat.
type MessageDeleted struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// MessagesCleared reports that every message of a chat was deleted.
type MessagesCleared struct {
	ChatID string `json:"chatId"`
}

// ChatNew carries a chat the user was added to.
type ChatNew struct {
	Chat chat.Chat
}

// ChatLastMessage reports a chat's new last message.
type ChatLastMessage struct {
	ChatID      string       `json:"chatId"`
	LastMessage chat.Message `json:"lastMessage"`
}

// ChatUpdated carries new group metadata.
type ChatUpdated struct {
	Chat chat.Chat
}

// ChatDeleted names a deleted chat.
type ChatDeleted struct {
	ChatID string `json:"chatId"`
}

func (MessageNew) Name() string      { return EventMessageNew }
func (MessageEdited) Name() string   { return EventMessageEdited }
func (MessageDeleted) Name() string  { return EventMessageDeleted }
func (MessagesCleared) Name() string { return EventMessagesCleared }
func (ChatNew) Name() string         { return EventChatNew }
func (ChatLastMessage) Name() string { return EventChatUpdate }
func (ChatUpdated) Name() string     { return EventChatGroupUpdated }
func (ChatDeleted) Name() string     { return EventChatDeleted }

var decoders = map[string]func(json.RawMessage) (Event, error){
	EventMessageNew: func(p json.RawMessage) (Event, error) {
		var m chat.Message
		if err := json.Unmarshal(p, &m); err != nil {
			return nil, err
		}
		return MessageNew{Message: m}, require(m.ID, m.ChatID)
	},
	EventMessageEdited: func(p json.RawMessage) (Event, error) {
		var e MessageEdited
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, err
		}
		if e.ChatID == "" {
			e.ChatID = e.Message.ChatID
		}
		return e, require(e.ChatID, e.Message.ID)
	},
	EventMessageDeleted: func(p json.RawMessage) (Event, error) {
		var e MessageDeleted
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, err
		}
		return e, require(e.ChatID, e.MessageID)
	},
	EventMessagesCleared: func(p json.RawMessage) (Event, error) {
		var e MessagesCleared
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, err
		}
		return e, require(e.ChatID)
	},
	EventChatNew: func(p json.RawMessage) (Event, error) {
		var c chat.Chat
		if err := json.Unmarshal(p, &c); err != nil {
			return nil, err
		}
		return ChatNew{Chat: c}, require(c.ID)
	},
	EventChatUpdate: func(p json.RawMessage) (Event, error) {
		var e ChatLastMessage
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, err
		}
		return e, require(e.ChatID, e.LastMessage.ID)
	},
	EventChatGroupUpdated: func(p json.RawMessage) (Event, error) {
		var c chat.Chat
		if err := json.Unmarshal(p, &c); err != nil {
			return nil, err
		}
		return ChatUpdated{Chat: c}, require(c.ID)
	},
	EventChatDeleted: func(p json.RawMessage) (Event, error) {
		var e ChatDeleted
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, err
		}
		return e, require(e.ChatID)
	},
}

// Decode turns an envelope into a typed event.
func Decode(env Envelope) (Event, error) {
	dec, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	evt, err := dec(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return evt, nil
}

func require(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return ErrMalformed
		}
	}
	return nil
}
