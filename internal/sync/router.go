// Package sync applies realtime channel events to the chat store.
package sync

import (
	stdsync "sync"

	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/realtime"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Source delivers every decoded realtime event to its attached handlers.
// realtime.Client is the production source.
type Source interface {
	Attach(h realtime.Handler) (detach func())
}

// Router dispatches the store actions matching each realtime event. Every
// action is idempotent by id and a no-op for chats that are not loaded, so
// duplicate or stray deliveries are harmless.
type Router struct {
	store  *store.Store
	logger *zap.Logger

	mu     stdsync.Mutex
	detach func()
}

var _ realtime.Handler = (*Router)(nil)

// NewRouter creates a router feeding st.
func NewRouter(st *store.Store, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{store: st, logger: logger}
}

// Start attaches the router to src. It is a no-op while already attached;
// after Stop it attaches afresh.
func (r *Router) Start(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detach != nil {
		return
	}
	r.detach = src.Attach(r)
}

// Stop detaches the router from its source.
func (r *Router) Stop() {
	r.mu.Lock()
	detach := r.detach
	r.detach = nil
	r.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// Ingest applies evt to the store.
func (r *Router) Ingest(evt realtime.Event) {
	actions := Actions(evt)
	if len(actions) == 0 {
		return
	}
	changed := r.store.Dispatch(actions...)
	r.logger.Debug("realtime event applied",
		zap.String("event", evt.Name()),
		zap.Bool("changed", changed != 0),
	)
}

// Reduce returns the state after applying evt to s.
func Reduce(s store.State, evt realtime.Event) store.State {
	for _, a := range Actions(evt) {
		s = store.Reduce(s, a)
	}
	return s
}

// Actions maps a realtime event to the store actions it implies.
func Actions(evt realtime.Event) []store.Action {
	switch e := evt.(type) {
	case realtime.MessageNew:
		return []store.Action{store.AppendMessage{ChatID: e.Message.ChatID, Message: confirmed(e.Message)}}
	case realtime.MessageEdited:
		m := confirmed(e.Message)
		if m.ChatID == "" {
			m.ChatID = e.ChatID
		}
		return []store.Action{store.ReplaceMessage{ChatID: e.ChatID, Message: m}}
	case realtime.MessageDeleted:
		return []store.Action{store.RemoveMessage{ChatID: e.ChatID, MessageID: e.MessageID}}
	case realtime.MessagesCleared:
		return []store.Action{store.ClearMessages{ChatID: e.ChatID}}
	case realtime.ChatNew:
		return []store.Action{store.UpsertChatToFront{Chat: e.Chat}}
	case realtime.ChatLastMessage:
		return []store.Action{store.PatchChatLastMessage{ChatID: e.ChatID, Message: confirmed(e.LastMessage)}}
	case realtime.ChatUpdated:
		return []store.Action{store.ReplaceChatEverywhere{Chat: e.Chat}}
	case realtime.ChatDeleted:
		return []store.Action{store.RemoveChatEverywhere{ChatID: e.ChatID}}
	}
	return nil
}

// confirmed strips any local status a pushed message might carry.
func confirmed(m chat.Message) chat.Message {
	m.Status = chat.StatusConfirmed
	return m
}
