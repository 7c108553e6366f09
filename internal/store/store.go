package store

import (
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/chat"
	"go.uber.org/zap"
)

// Store is the authoritative in-memory cache of the chat list, the open
// transcript and the read markers. All mutations go through Dispatch, which
// applies actions atomically and notifies observers on the bus.
type Store struct {
	mu     sync.Mutex
	state  State
	bus    *bus.Bus
	logger *zap.Logger
}

// New creates an empty store. Until the first page arrives the list is assumed
// to have more chats to load.
func New(b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:  State{HasMore: true, Read: map[string]string{}},
		bus:    b,
		logger: logger,
	}
}

// Dispatch applies actions in order as one atomic step and returns what changed.
func (s *Store) Dispatch(actions ...Action) Change {
	s.mu.Lock()
	var changed Change
	for _, a := range actions {
		var c Change
		s.state, c = a.apply(s.state)
		changed |= c
	}
	activeID := s.state.ActiveChatID()
	s.mu.Unlock()

	s.notify(changed, activeID)
	return changed
}

func (s *Store) notify(changed Change, activeID string) {
	if s.bus == nil || changed == 0 {
		return
	}
	if changed&ChangeChats != 0 {
		s.bus.Publish(bus.Now(bus.KindChatsChanged, nil))
	}
	if changed&ChangeTranscript != 0 {
		s.bus.Publish(bus.Now(bus.KindTranscriptChanged, activeID))
	}
	if changed&ChangeRead != 0 {
		s.bus.Publish(bus.Now(bus.KindReadChanged, nil))
	}
}

// Subscribe registers an observer for store change notifications.
func (s *Store) Subscribe(bufSize int) (<-chan bus.Event, func()) {
	return s.bus.Subscribe("store.", bufSize)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Chats returns a copy of the chat list.
func (s *Store) Chats() []chat.Chat {
	return s.Snapshot().Chats
}

// HasMore reports whether the last page fetched said more chats exist.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasMore
}

// Active returns a copy of the open transcript.
func (s *Store) Active() (chat.Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Active == nil {
		return chat.Transcript{}, false
	}
	return s.state.Active.Clone(), true
}

// ActiveChatID returns the id of the open chat, or "".
func (s *Store) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveChatID()
}

// ReplaceChatList sets the whole chat list.
func (s *Store) ReplaceChatList(chats []chat.Chat, hasMore bool) {
	s.Dispatch(ReplaceChatList{Chats: chats, HasMore: hasMore})
}

// BeginLoadMore reserves the next page fetch. It returns false when a fetch
// is already in flight or the list is exhausted.
func (s *Store) BeginLoadMore() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.loadingMore || !s.state.HasMore {
		return Ticket{}, false
	}
	s.state.loadingMore = true
	s.state.pageGen++
	return Ticket{Offset: len(s.state.Chats), gen: s.state.pageGen}, true
}

// AppendChats completes the fetch reserved by t. Stale tickets are ignored.
func (s *Store) AppendChats(t Ticket, chats []chat.Chat, hasMore bool) bool {
	return s.Dispatch(AppendChats{Ticket: t, Chats: chats, HasMore: hasMore}) != 0
}

// AbortLoadMore releases the fetch reserved by t after a failure.
func (s *Store) AbortLoadMore(t Ticket) {
	s.Dispatch(AbortLoadMore{Ticket: t})
}

// UpsertChatToFront inserts c at the head of the list, replacing any copy.
func (s *Store) UpsertChatToFront(c chat.Chat) {
	s.Dispatch(UpsertChatToFront{Chat: c})
}

// PatchChatLastMessage updates the last message of a listed chat and promotes it.
func (s *Store) PatchChatLastMessage(chatID string, m chat.Message) {
	s.Dispatch(PatchChatLastMessage{ChatID: chatID, Message: m})
}

// ReplaceChatEverywhere swaps chat metadata in the list and the open transcript.
func (s *Store) ReplaceChatEverywhere(c chat.Chat) {
	s.Dispatch(ReplaceChatEverywhere{Chat: c})
}

// RemoveChatEverywhere drops a chat from the list and closes it if open.
func (s *Store) RemoveChatEverywhere(chatID string) {
	s.Dispatch(RemoveChatEverywhere{ChatID: chatID})
}

// CloseChat clears the open transcript.
func (s *Store) CloseChat() {
	s.Dispatch(CloseChat{})
}
