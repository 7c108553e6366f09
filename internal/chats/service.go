// Package chats holds the chat operations that wait for the backend before
// touching the store: opening a chat, creating and deleting chats, editing and
// deleting messages, and group metadata changes.
package chats

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// ErrEmptyName is returned when a group rename has no name.
var ErrEmptyName = errors.New("group name is empty")

// Backend is the subset of the REST client the service uses.
type Backend interface {
	GetChat(ctx context.Context, chatID string) (*chat.Transcript, error)
	CreateChat(ctx context.Context, req backend.CreateChatRequest) (*chat.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	ClearMessages(ctx context.Context, chatID string) error
	EditMessage(ctx context.Context, messageID, content string) (*chat.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	UpdateGroupName(ctx context.Context, chatID, name string) (*chat.Chat, error)
	UpdateGroupImage(ctx context.Context, chatID, image string) (*chat.Chat, error)
	DeleteGroupName(ctx context.Context, chatID string) (*chat.Chat, error)
	DeleteGroupImage(ctx context.Context, chatID string) (*chat.Chat, error)
}

// Service applies backend results to the store. A failed call leaves the
// store as it was.
type Service struct {
	store   *store.Store
	backend Backend
	logger  *zap.Logger
}

// NewService creates a service.
func NewService(st *store.Store, be Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, backend: be, logger: logger}
}

// OpenChat fetches a chat with its messages and makes it the open transcript.
// The previous transcript is cleared at once. If another chat is opened
// before the fetch returns, the result is dropped. On chat.ErrNotFound no
// transcript is left open; any other error brings the previous one back.
func (s *Service) OpenChat(ctx context.Context, chatID string) (chat.Transcript, error) {
	if chatID == "" {
		return chat.Transcript{}, chat.ErrNoChatSelected
	}
	s.store.Dispatch(store.BeginOpen{ChatID: chatID})

	t, err := s.backend.GetChat(ctx, chatID)
	if err != nil {
		s.store.Dispatch(store.AbortOpen{ChatID: chatID, Restore: !errors.Is(err, chat.ErrNotFound)})
		s.logger.Warn("open chat failed", zap.String("chat_id", chatID), zap.Error(err))
		return chat.Transcript{}, err
	}

	if s.store.Dispatch(store.SetActive{Transcript: *t})&store.ChangeTranscript == 0 {
		s.logger.Debug("dropping superseded transcript", zap.String("chat_id", chatID))
		return *t, nil
	}
	s.markOpened(*t)
	return *t, nil
}

// markOpened marks the chat read up to its last known message.
func (s *Service) markOpened(t chat.Transcript) {
	if n := len(t.Messages); n > 0 {
		s.store.MarkRead(t.Chat.ID, t.Messages[n-1].ID)
		return
	}
	if t.Chat.LastMessage != nil {
		s.store.MarkRead(t.Chat.ID, t.Chat.LastMessage.ID)
		return
	}
	s.store.MarkChatRead(t.Chat.ID)
}

// CloseChat clears the open transcript.
func (s *Service) CloseChat() {
	s.store.CloseChat()
}

// MarkRead records messageID as the last message seen in chatID.
func (s *Service) MarkRead(chatID, messageID string) error {
	if chatID == "" {
		return chat.ErrNoChatSelected
	}
	s.store.MarkRead(chatID, messageID)
	return nil
}

// CreateChat creates a chat and puts it at the top of the list.
func (s *Service) CreateChat(ctx context.Context, req backend.CreateChatRequest) (*chat.Chat, error) {
	c, err := s.backend.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store.UpsertChatToFront(*c)
	s.logger.Info("chat created", zap.String("chat_id", c.ID), zap.Bool("group", c.IsGroup))
	return c, nil
}

// DeleteChat deletes a chat and removes it everywhere.
func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return chat.ErrNoChatSelected
	}
	if err := s.backend.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	s.store.RemoveChatEverywhere(chatID)
	return nil
}

// ClearMessages deletes every message of a chat.
func (s *Service) ClearMessages(ctx context.Context, chatID string) error {
	if chatID == "" {
		return chat.ErrNoChatSelected
	}
	if err := s.backend.ClearMessages(ctx, chatID); err != nil {
		return err
	}
	s.store.Dispatch(store.ClearMessages{ChatID: chatID})
	return nil
}

// EditMessage replaces a message's text.
func (s *Service) EditMessage(ctx context.Context, chatID, messageID, content string) (*chat.Message, error) {
	content = strings.TrimSpace(content)
	if chatID == "" {
		return nil, chat.ErrNoChatSelected
	}
	if content == "" {
		return nil, chat.ErrEmptyMessage
	}
	m, err := s.backend.EditMessage(ctx, messageID, content)
	if err != nil {
		return nil, err
	}
	if m.ChatID == "" {
		m.ChatID = chatID
	}
	s.store.Dispatch(store.ReplaceMessage{ChatID: chatID, Message: *m})
	return m, nil
}

// DeleteMessage deletes a message.
func (s *Service) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	if chatID == "" {
		return chat.ErrNoChatSelected
	}
	if err := s.backend.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.store.Dispatch(store.RemoveMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

// RenameGroup sets a group chat's name.
func (s *Service) RenameGroup(ctx context.Context, chatID, name string) (*chat.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return s.groupCall(chatID, func() (*chat.Chat, error) { return s.backend.UpdateGroupName(ctx, chatID, name) })
}

// SetGroupImage sets a group chat's image.
func (s *Service) SetGroupImage(ctx context.Context, chatID, image string) (*chat.Chat, error) {
	return s.groupCall(chatID, func() (*chat.Chat, error) { return s.backend.UpdateGroupImage(ctx, chatID, image) })
}

// RemoveGroupName clears a group chat's name.
func (s *Service) RemoveGroupName(ctx context.Context, chatID string) (*chat.Chat, error) {
	return s.groupCall(chatID, func() (*chat.Chat, error) { return s.backend.DeleteGroupName(ctx, chatID) })
}

// RemoveGroupImage clears a group chat's image.
func (s *Service) RemoveGroupImage(ctx context.Context, chatID string) (*chat.Chat, error) {
	return s.groupCall(chatID, func() (*chat.Chat, error) { return s.backend.DeleteGroupImage(ctx, chatID) })
}

func (s *Service) groupCall(chatID string, call func() (*chat.Chat, error)) (*chat.Chat, error) {
	if chatID == "" {
		return nil, chat.ErrNoChatSelected
	}
	c, err := call()
	if err != nil {
		return nil, err
	}
	s.store.ReplaceChatEverywhere(*c)
	return c, nil
}
