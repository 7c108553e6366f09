// Package outbox implements the optimistic send pipeline: a composed message
// shows up in the open transcript at once and is later confirmed or rolled back.
package outbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// MessageSender is the backend call behind a send.
type MessageSender interface {
	SendMessage(ctx context.Context, req backend.SendRequest) (*chat.Message, error)
}

// Draft is a message composed by the user.
type Draft struct {
	ChatID  string
	Content string
	Image   string
	ReplyTo *chat.Message
}

// Sender runs drafts through local echo, dispatch and reconciliation.
type Sender struct {
	store    *store.Store
	backend  MessageSender
	identity auth.Identity
	bus      *bus.Bus
	logger   *zap.Logger
	now      func() time.Time
}

// NewSender creates a sender acting as identity.
func NewSender(st *store.Store, be MessageSender, identity auth.Identity, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		store:    st,
		backend:  be,
		identity: identity,
		bus:      b,
		logger:   logger,
		now:      time.Now,
	}
}

// Send validates d, appends a pending echo to the open transcript if it still
// belongs to d.ChatID, and posts the message. On success the echo is replaced
// by the backend's copy, which is returned; on failure the echo is removed and
// the error returned. Nothing is retried.
func (s *Sender) Send(ctx context.Context, d Draft) (*chat.Message, error) {
	content := strings.TrimSpace(d.Content)
	if d.ChatID == "" {
		return nil, chat.ErrNoChatSelected
	}
	if content == "" && d.Image == "" {
		return nil, chat.ErrEmptyMessage
	}

	now := s.now()
	echo := chat.Message{
		ID:        chat.NewTempID(),
		ChatID:    d.ChatID,
		Sender:    s.identity.User,
		Content:   content,
		Image:     d.Image,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    chat.StatusSending,
	}
	req := backend.SendRequest{ChatID: d.ChatID, Content: content, Image: d.Image}
	if d.ReplyTo != nil {
		echo.ReplyTo = d.ReplyTo.Reduced()
		req.ReplyToID = d.ReplyTo.ID
	}

	s.store.Dispatch(store.AppendMessage{ChatID: d.ChatID, Message: echo})
	s.publish(bus.KindMessageSending, map[string]string{
		"chat_id": d.ChatID,
		"temp_id": echo.ID,
	})

	m, err := s.backend.SendMessage(ctx, req)
	if err == nil && (m.ID == "" || chat.IsTempID(m.ID)) {
		err = chat.RequestFailed("send message", 0, fmt.Errorf("backend returned unusable id %q", m.ID))
	}
	if err != nil {
		s.store.Dispatch(store.RemoveMessage{ChatID: d.ChatID, MessageID: echo.ID})
		s.logger.Warn("send failed", zap.Error(err), zap.String("chat_id", d.ChatID), zap.String("temp_id", echo.ID))
		s.publish(bus.KindMessageSendFailed, map[string]string{
			"chat_id": d.ChatID,
			"temp_id": echo.ID,
			"error":   err.Error(),
		})
		return nil, err
	}

	confirmed := m.Clone()
	confirmed.Status = chat.StatusConfirmed
	if confirmed.ChatID == "" {
		confirmed.ChatID = d.ChatID
	}
	s.store.Dispatch(store.ConfirmMessage{ChatID: d.ChatID, TempID: echo.ID, Message: confirmed})

	s.logger.Info("message sent", zap.String("temp_id", echo.ID), zap.String("message_id", confirmed.ID))
	s.publish(bus.KindMessageSendAck, map[string]string{
		"chat_id":    d.ChatID,
		"temp_id":    echo.ID,
		"message_id": confirmed.ID,
	})
	return &confirmed, nil
}

func (s *Sender) publish(kind string, payload map[string]string) {
	if s.bus != nil {
		s.bus.Publish(bus.Now(kind, payload))
	}
}
