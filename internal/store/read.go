package store

import "github.com/matheus3301/chatsync/internal/chat"

// MarkRead records messageID as the last message seen in chatID, overwriting
// any earlier marker.
func (s *Store) MarkRead(chatID, messageID string) {
	s.Dispatch(MarkRead{ChatID: chatID, MessageID: messageID})
}

// MarkChatRead marks chatID read up to its current last message. Chats that
// are not listed or have no messages are left alone.
func (s *Store) MarkChatRead(chatID string) {
	s.mu.Lock()
	var msgID string
	if i := s.state.chatIndex(chatID); i >= 0 && s.state.Chats[i].LastMessage != nil {
		msgID = s.state.Chats[i].LastMessage.ID
	}
	s.mu.Unlock()
	if msgID != "" {
		s.MarkRead(chatID, msgID)
	}
}

// LastRead returns the recorded marker for chatID.
func (s *Store) LastRead(chatID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.state.Read[chatID]
	return id, ok
}

// IsUnread evaluates IsUnread against the current state.
func (s *Store) IsUnread(chatID string, m *chat.Message, currentUserID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return IsUnread(s.state, chatID, m, currentUserID)
}

// IsUnread reports whether m counts as unread in chatID for currentUserID:
// it exists, someone else sent it, and it is not the chat's read marker.
func IsUnread(s State, chatID string, m *chat.Message, currentUserID string) bool {
	if m == nil || currentUserID == "" {
		return false
	}
	return m.Sender.ID != currentUserID && m.ID != s.Read[chatID]
}
