package store

import (
	"maps"
	"slices"

	"github.com/matheus3301/chatsync/internal/chat"
)

// Action is a single state transition understood by Reduce.
type Action interface {
	apply(s State) (State, Change)
}

// Reduce applies a to s and returns the resulting state. s is not modified.
func Reduce(s State, a Action) State {
	next, _ := a.apply(s)
	return next
}

// ReplaceChatList sets the chat list from an initial fetch. Any page fetch
// still in flight is invalidated.
type ReplaceChatList struct {
	Chats   []chat.Chat
	HasMore bool
}

func (a ReplaceChatList) apply(s State) (State, Change) {
	s.Chats = dedupe(a.Chats)
	s.HasMore = a.HasMore
	s.loadingMore = false
	s.pageGen++
	return s, ChangeChats
}

// AppendChats completes the page fetch identified by Ticket. It is ignored
// when that fetch is no longer the one in flight. Chats already listed are skipped.
type AppendChats struct {
	Ticket  Ticket
	Chats   []chat.Chat
	HasMore bool
}

func (a AppendChats) apply(s State) (State, Change) {
	if !s.loadingMore || a.Ticket.gen != s.pageGen {
		return s, 0
	}
	next := slices.Clone(s.Chats)
	for _, c := range a.Chats {
		if slices.ContainsFunc(next, func(x chat.Chat) bool { return x.ID == c.ID }) {
			continue
		}
		next = append(next, c)
	}
	s.Chats = next
	s.HasMore = a.HasMore
	s.loadingMore = false
	return s, ChangeChats
}

// AbortLoadMore releases the in-flight page fetch without touching the list.
type AbortLoadMore struct {
	Ticket Ticket
}

func (a AbortLoadMore) apply(s State) (State, Change) {
	if !s.loadingMore || a.Ticket.gen != s.pageGen {
		return s, 0
	}
	s.loadingMore = false
	return s, 0
}

// UpsertChatToFront removes any chat with the same id and inserts Chat at index 0.
type UpsertChatToFront struct {
	Chat chat.Chat
}

func (a UpsertChatToFront) apply(s State) (State, Change) {
	s.Chats = toFront(s.Chats, a.Chat)
	return s, ChangeChats
}

// PatchChatLastMessage sets the last message of a listed chat and promotes it.
// Chats outside the loaded window are left alone.
type PatchChatLastMessage struct {
	ChatID  string
	Message chat.Message
}

func (a PatchChatLastMessage) apply(s State) (State, Change) {
	i := s.chatIndex(a.ChatID)
	if i < 0 {
		return s, 0
	}
	c := s.Chats[i]
	m := a.Message
	c.LastMessage = &m
	s.Chats = toFront(s.Chats, c)
	return s, ChangeChats
}

// ReplaceChatEverywhere swaps a chat's metadata in the list and in the open
// transcript, keeping positions.
type ReplaceChatEverywhere struct {
	Chat chat.Chat
}

func (a ReplaceChatEverywhere) apply(s State) (State, Change) {
	var changed Change
	if i := s.chatIndex(a.Chat.ID); i >= 0 {
		s.Chats = slices.Clone(s.Chats)
		s.Chats[i] = a.Chat
		changed |= ChangeChats
	}
	if t, ok := s.activeFor(a.Chat.ID); ok {
		nt := *t
		nt.Chat = a.Chat
		s.Active = &nt
		changed |= ChangeTranscript
	}
	return s, changed
}

// RemoveChatEverywhere drops a chat from the list and closes it if open.
type RemoveChatEverywhere struct {
	ChatID string
}

func (a RemoveChatEverywhere) apply(s State) (State, Change) {
	var changed Change
	if s.chatIndex(a.ChatID) >= 0 {
		s.Chats = without(s.Chats, a.ChatID)
		changed |= ChangeChats
	}
	if _, ok := s.activeFor(a.ChatID); ok {
		s.Active = nil
		changed |= ChangeTranscript
	}
	if s.opening == a.ChatID {
		s.opening = ""
	}
	if s.previous != nil && s.previous.Chat.ID == a.ChatID {
		s.previous = nil
	}
	return s, changed
}

// BeginOpen clears the open transcript and records ChatID as the chat being fetched.
type BeginOpen struct {
	ChatID string
}

func (a BeginOpen) apply(s State) (State, Change) {
	var changed Change
	if s.Active != nil {
		changed = ChangeTranscript
	}
	if s.opening == "" {
		s.previous = s.Active
	}
	s.Active = nil
	s.opening = a.ChatID
	return s, changed
}

// SetActive installs a fetched transcript if its chat is still the one being opened.
type SetActive struct {
	Transcript chat.Transcript
}

func (a SetActive) apply(s State) (State, Change) {
	if s.opening == "" || s.opening != a.Transcript.Chat.ID {
		return s, 0
	}
	t := a.Transcript
	t.Messages = slices.Clone(t.Messages)
	s.Active = &t
	s.opening = ""
	s.previous = nil
	return s, ChangeTranscript
}

// AbortOpen forgets a pending open of ChatID. With Restore set, the
// transcript that was open before BeginOpen comes back; otherwise none is
// left open. It does nothing once another open has superseded ChatID.
type AbortOpen struct {
	ChatID  string
	Restore bool
}

func (a AbortOpen) apply(s State) (State, Change) {
	if s.opening != a.ChatID {
		return s, 0
	}
	var changed Change
	if a.Restore && s.previous != nil {
		s.Active = s.previous
		changed = ChangeTranscript
	}
	s.opening = ""
	s.previous = nil
	return s, changed
}

// CloseChat clears the open transcript and any pending open.
type CloseChat struct{}

func (CloseChat) apply(s State) (State, Change) {
	var changed Change
	if s.Active != nil {
		changed = ChangeTranscript
	}
	s.Active = nil
	s.opening = ""
	s.previous = nil
	return s, changed
}

// AppendMessage adds Message to the open transcript of ChatID unless a
// message with the same id is already there.
type AppendMessage struct {
	ChatID  string
	Message chat.Message
}

func (a AppendMessage) apply(s State) (State, Change) {
	t, ok := s.activeFor(a.ChatID)
	if !ok || t.IndexOf(a.Message.ID) >= 0 {
		return s, 0
	}
	nt := *t
	nt.Messages = append(slices.Clip(t.Messages), a.Message)
	s.Active = &nt
	return s, ChangeTranscript
}

// ConfirmMessage replaces the local echo TempID with the backend copy at the
// same position. If the backend copy is already present the echo is dropped.
type ConfirmMessage struct {
	ChatID  string
	TempID  string
	Message chat.Message
}

func (a ConfirmMessage) apply(s State) (State, Change) {
	t, ok := s.activeFor(a.ChatID)
	if !ok {
		return s, 0
	}
	i := t.IndexOf(a.TempID)
	if i < 0 {
		return s, 0
	}
	nt := *t
	if t.IndexOf(a.Message.ID) >= 0 {
		nt.Messages = slices.Delete(slices.Clone(t.Messages), i, i+1)
	} else {
		nt.Messages = slices.Clone(t.Messages)
		nt.Messages[i] = a.Message
	}
	s.Active = &nt
	return s, ChangeTranscript
}

// ReplaceMessage swaps the message with the same id in the open transcript of ChatID.
type ReplaceMessage struct {
	ChatID  string
	Message chat.Message
}

func (a ReplaceMessage) apply(s State) (State, Change) {
	t, ok := s.activeFor(a.ChatID)
	if !ok {
		return s, 0
	}
	i := t.IndexOf(a.Message.ID)
	if i < 0 {
		return s, 0
	}
	nt := *t
	nt.Messages = slices.Clone(t.Messages)
	nt.Messages[i] = a.Message
	s.Active = &nt
	return s, ChangeTranscript
}

// RemoveMessage deletes a message by id from the open transcript of ChatID.
// It also serves to discard a local echo.
type RemoveMessage struct {
	ChatID    string
	MessageID string
}

func (a RemoveMessage) apply(s State) (State, Change) {
	t, ok := s.activeFor(a.ChatID)
	if !ok {
		return s, 0
	}
	i := t.IndexOf(a.MessageID)
	if i < 0 {
		return s, 0
	}
	nt := *t
	nt.Messages = slices.Delete(slices.Clone(t.Messages), i, i+1)
	s.Active = &nt
	return s, ChangeTranscript
}

// ClearMessages empties the open transcript of ChatID.
type ClearMessages struct {
	ChatID string
}

func (a ClearMessages) apply(s State) (State, Change) {
	t, ok := s.activeFor(a.ChatID)
	if !ok || len(t.Messages) == 0 {
		return s, 0
	}
	nt := *t
	nt.Messages = []chat.Message{}
	s.Active = &nt
	return s, ChangeTranscript
}

// MarkRead records MessageID as the last message seen in ChatID.
type MarkRead struct {
	ChatID    string
	MessageID string
}

func (a MarkRead) apply(s State) (State, Change) {
	if a.ChatID == "" || a.MessageID == "" || s.Read[a.ChatID] == a.MessageID {
		return s, 0
	}
	read := maps.Clone(s.Read)
	if read == nil {
		read = make(map[string]string)
	}
	read[a.ChatID] = a.MessageID
	s.Read = read
	return s, ChangeRead
}

func toFront(chats []chat.Chat, c chat.Chat) []chat.Chat {
	out := make([]chat.Chat, 0, len(chats)+1)
	out = append(out, c)
	for _, x := range chats {
		if x.ID != c.ID {
			out = append(out, x)
		}
	}
	return out
}

func without(chats []chat.Chat, id string) []chat.Chat {
	out := make([]chat.Chat, 0, len(chats))
	for _, x := range chats {
		if x.ID != id {
			out = append(out, x)
		}
	}
	return out
}

func dedupe(chats []chat.Chat) []chat.Chat {
	seen := make(map[string]bool, len(chats))
	out := make([]chat.Chat, 0, len(chats))
	for _, c := range chats {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
