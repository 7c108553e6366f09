// Package pager loads the chat list page by page.
package pager

import (
	"context"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Default page sizes: a small first page, larger ones after.
const (
	DefaultInitialSize = 5
	DefaultPageSize    = 20
)

// ChatLister fetches one page of the chat list.
type ChatLister interface {
	ListChats(ctx context.Context, limit, offset int) (*backend.ChatPage, error)
}

// Cursor drives the chat list pagination in the store.
type Cursor struct {
	store       *store.Store
	lister      ChatLister
	initialSize int
	pageSize    int
	logger      *zap.Logger
}

// NewCursor creates a cursor. Non-positive sizes fall back to the defaults.
func NewCursor(st *store.Store, lister ChatLister, initialSize, pageSize int, logger *zap.Logger) *Cursor {
	if initialSize <= 0 {
		initialSize = DefaultInitialSize
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cursor{
		store:       st,
		lister:      lister,
		initialSize: initialSize,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// LoadInitial fetches the first page and replaces the chat list with it. On
// failure the list is left as it was.
func (c *Cursor) LoadInitial(ctx context.Context) error {
	page, err := c.lister.ListChats(ctx, c.initialSize, 0)
	if err != nil {
		c.logger.Warn("initial chat page failed", zap.Error(err))
		return err
	}
	c.store.ReplaceChatList(page.Chats, page.HasMore)
	c.logger.Debug("chat list loaded", zap.Int("chats", len(page.Chats)), zap.Bool("has_more", page.HasMore))
	return nil
}

// LoadMore fetches the page after the chats already listed. It returns false
// without a request when a fetch is already running or the list is exhausted.
// A failed fetch leaves the list untouched and may be retried.
func (c *Cursor) LoadMore(ctx context.Context) (bool, error) {
	ticket, ok := c.store.BeginLoadMore()
	if !ok {
		return false, nil
	}

	page, err := c.lister.ListChats(ctx, c.pageSize, ticket.Offset)
	if err != nil {
		c.store.AbortLoadMore(ticket)
		c.logger.Warn("chat page failed", zap.Error(err), zap.Int("offset", ticket.Offset))
		return false, err
	}
	if !c.store.AppendChats(ticket, page.Chats, page.HasMore) {
		c.logger.Debug("discarding stale chat page", zap.Int("offset", ticket.Offset))
		return false, nil
	}
	return true, nil
}
