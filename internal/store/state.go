package store

import (
	"maps"

	"github.com/matheus3301/chatsync/internal/chat"
)

// State is the full engine state held by a Store. Values handed out by the
// Store are copies; a State is never modified in place by the reducer.
type State struct {
	// Chats is the chat list, most recently active first.
	Chats   []chat.Chat
	HasMore bool
	// Active is the open transcript, nil when no chat is open.
	Active *chat.Transcript
	// Read maps chat id to the id of the last message seen there.
	Read map[string]string

	opening     string
	loadingMore bool
	pageGen     uint64

	// previous is the transcript BeginOpen replaced, kept until the open settles.
	previous *chat.Transcript
}

// Ticket identifies one in-flight chat list page fetch.
type Ticket struct {
	Offset int
	gen    uint64
}

// Change is a bit set describing which parts of the state an action touched.
type Change uint8

const (
	ChangeChats Change = 1 << iota
	ChangeTranscript
	ChangeRead
)

// ActiveChatID returns the id of the open chat, or "".
func (s State) ActiveChatID() string {
	if s.Active == nil {
		return ""
	}
	return s.Active.Chat.ID
}

// LoadingMore reports whether a page fetch is in flight.
func (s State) LoadingMore() bool {
	return s.loadingMore
}

// Opening returns the chat id whose transcript fetch is pending, or "".
func (s State) Opening() string {
	return s.opening
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := s
	out.Chats = make([]chat.Chat, len(s.Chats))
	for i, c := range s.Chats {
		out.Chats[i] = c.Clone()
	}
	if s.Active != nil {
		t := s.Active.Clone()
		out.Active = &t
	}
	out.Read = maps.Clone(s.Read)
	return out
}

func (s State) chatIndex(id string) int {
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return i
		}
	}
	return -1
}

// activeFor returns the transcript if it belongs to chatID.
func (s State) activeFor(chatID string) (*chat.Transcript, bool) {
	if s.Active == nil || chatID == "" || s.Active.Chat.ID != chatID {
		return nil, false
	}
	return s.Active, true
}
