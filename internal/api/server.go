package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/chats"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/pager"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// DefaultWatchNamespaces are streamed when a watch request names none.
var DefaultWatchNamespaces = []string{"store.", "message.", "conn."}

// Directory lists the users a chat can be started with.
type Directory interface {
	ListUsers(ctx context.Context) ([]chat.User, error)
}

// Deps are the engine components the server exposes.
type Deps struct {
	Profile  string
	Store    *store.Store
	Cursor   *pager.Cursor
	Sender   *outbox.Sender
	Chats    *chats.Service
	Users    Directory
	Machine  *status.Machine
	Bus      *bus.Bus
	Identity auth.Identity
	Logger   *zap.Logger
}

// Server implements EngineServer on top of the engine components.
type Server struct {
	Deps
	startedAt time.Time
}

// NewServer creates a server.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{Deps: d, startedAt: time.Now()}
}

var _ EngineServer = (*Server)(nil)

func (s *Server) Status(_ context.Context, _ *Empty) (*StatusResponse, error) {
	st := s.Store.Snapshot()
	return &StatusResponse{
		Profile:      s.Profile,
		Connection:   string(s.Machine.Current()),
		UserID:       s.Identity.ID(),
		Chats:        len(st.Chats),
		HasMore:      st.HasMore,
		ActiveChatID: st.ActiveChatID(),
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
	}, nil
}

func (s *Server) ListChats(_ context.Context, req *ListChatsRequest) (*ChatListResponse, error) {
	return s.chatList(req.Search), nil
}

func (s *Server) chatList(search string) *ChatListResponse {
	st := s.Store.Snapshot()
	uid := s.Identity.ID()
	out := &ChatListResponse{Chats: make([]ChatEntry, 0, len(st.Chats)), HasMore: st.HasMore}
	for _, c := range st.Chats {
		if !c.Matches(search, uid) {
			continue
		}
		out.Chats = append(out.Chats, ChatEntry{
			Chat:   c,
			Unread: store.IsUnread(st, c.ID, c.LastMessage, uid),
		})
	}
	return out
}

func (s *Server) LoadMore(ctx context.Context, _ *Empty) (*LoadMoreResponse, error) {
	loaded, err := s.Cursor.LoadMore(ctx)
	if err != nil {
		return nil, toStatus("load more", err)
	}
	st := s.Store.Snapshot()
	return &LoadMoreResponse{Loaded: loaded, HasMore: st.HasMore, Chats: len(st.Chats)}, nil
}

func (s *Server) Reload(ctx context.Context, _ *Empty) (*ChatListResponse, error) {
	if err := s.Cursor.LoadInitial(ctx); err != nil {
		return nil, toStatus("reload", err)
	}
	return s.chatList(""), nil
}

func (s *Server) OpenChat(ctx context.Context, req *ChatIDRequest) (*TranscriptResponse, error) {
	t, err := s.Chats.OpenChat(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("open chat", err)
	}
	return &TranscriptResponse{Transcript: &t}, nil
}

func (s *Server) CloseChat(_ context.Context, _ *Empty) (*Empty, error) {
	s.Chats.CloseChat()
	return &Empty{}, nil
}

func (s *Server) ActiveChat(_ context.Context, _ *Empty) (*TranscriptResponse, error) {
	t, ok := s.Store.Active()
	if !ok {
		return &TranscriptResponse{}, nil
	}
	return &TranscriptResponse{Transcript: &t}, nil
}

func (s *Server) SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageResponse, error) {
	d := outbox.Draft{ChatID: req.ChatID, Content: req.Content, Image: req.Image}
	if req.ReplyToID != "" {
		d.ReplyTo = s.findMessage(req.ChatID, req.ReplyToID)
	}
	m, err := s.Sender.Send(ctx, d)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &MessageResponse{Message: m}, nil
}

// findMessage looks the reply target up in the open transcript, falling back
// to a bare reference when it is not loaded.
func (s *Server) findMessage(chatID, msgID string) *chat.Message {
	if t, ok := s.Store.Active(); ok && t.Chat.ID == chatID {
		if i := t.IndexOf(msgID); i >= 0 {
			return &t.Messages[i]
		}
	}
	return &chat.Message{ID: msgID, ChatID: chatID}
}

func (s *Server) EditMessage(ctx context.Context, req *EditMessageRequest) (*MessageResponse, error) {
	m, err := s.Chats.EditMessage(ctx, req.ChatID, req.MessageID, req.Content)
	if err != nil {
		return nil, toStatus("edit message", err)
	}
	return &MessageResponse{Message: m}, nil
}

func (s *Server) DeleteMessage(ctx context.Context, req *MessageRef) (*Empty, error) {
	if err := s.Chats.DeleteMessage(ctx, req.ChatID, req.MessageID); err != nil {
		return nil, toStatus("delete message", err)
	}
	return &Empty{}, nil
}

func (s *Server) ClearMessages(ctx context.Context, req *ChatIDRequest) (*Empty, error) {
	if err := s.Chats.ClearMessages(ctx, req.ChatID); err != nil {
		return nil, toStatus("clear messages", err)
	}
	return &Empty{}, nil
}

func (s *Server) CreateChat(ctx context.Context, req *CreateChatRequest) (*ChatResponse, error) {
	c, err := s.Chats.CreateChat(ctx, *req)
	if err != nil {
		return nil, toStatus("create chat", err)
	}
	return &ChatResponse{Chat: c}, nil
}

func (s *Server) DeleteChat(ctx context.Context, req *ChatIDRequest) (*Empty, error) {
	if err := s.Chats.DeleteChat(ctx, req.ChatID); err != nil {
		return nil, toStatus("delete chat", err)
	}
	return &Empty{}, nil
}

func (s *Server) RenameGroup(ctx context.Context, req *GroupRequest) (*ChatResponse, error) {
	return s.group("rename group", func() (*chat.Chat, error) { return s.Chats.RenameGroup(ctx, req.ChatID, req.Value) })
}

func (s *Server) SetGroupImage(ctx context.Context, req *GroupRequest) (*ChatResponse, error) {
	return s.group("set group image", func() (*chat.Chat, error) { return s.Chats.SetGroupImage(ctx, req.ChatID, req.Value) })
}

func (s *Server) RemoveGroupName(ctx context.Context, req *GroupRequest) (*ChatResponse, error) {
	return s.group("remove group name", func() (*chat.Chat, error) { return s.Chats.RemoveGroupName(ctx, req.ChatID) })
}

func (s *Server) RemoveGroupImage(ctx context.Context, req *GroupRequest) (*ChatResponse, error) {
	return s.group("remove group image", func() (*chat.Chat, error) { return s.Chats.RemoveGroupImage(ctx, req.ChatID) })
}

func (s *Server) group(op string, call func() (*chat.Chat, error)) (*ChatResponse, error) {
	c, err := call()
	if err != nil {
		return nil, toStatus(op, err)
	}
	return &ChatResponse{Chat: c}, nil
}

func (s *Server) MarkRead(_ context.Context, req *MessageRef) (*Empty, error) {
	if err := s.Chats.MarkRead(req.ChatID, req.MessageID); err != nil {
		return nil, toStatus("mark read", err)
	}
	return &Empty{}, nil
}

func (s *Server) IsUnread(_ context.Context, req *IsUnreadRequest) (*IsUnreadResponse, error) {
	return &IsUnreadResponse{Unread: s.Store.IsUnread(req.ChatID, req.Message, s.Identity.ID())}, nil
}

func (s *Server) ListUsers(ctx context.Context, req *ListUsersRequest) (*UserListResponse, error) {
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return nil, toStatus("list users", err)
	}
	out := &UserListResponse{Users: make([]chat.User, 0, len(users))}
	for _, u := range users {
		if u.Matches(req.Search) {
			out.Users = append(out.Users, u)
		}
	}
	return out, nil
}

// Watch streams bus events whose kind starts with one of the requested
// namespaces until the client goes away.
func (s *Server) Watch(req *WatchRequest, stream grpc.ServerStream) error {
	namespaces := req.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultWatchNamespaces
	}
	ch, unsub := s.Bus.Subscribe("", 256)
	defer unsub()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if !matches(evt.Kind, namespaces) {
				continue
			}
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.Logger.Warn("unencodable event payload", zap.String("kind", evt.Kind), zap.Error(err))
				payload = nil
			}
			if err := stream.SendMsg(&WatchEvent{
				EventID:   uuid.New().String(),
				Profile:   s.Profile,
				Kind:      evt.Kind,
				Timestamp: evt.Timestamp,
				Payload:   payload,
			}); err != nil {
				return err
			}
		}
	}
}

func matches(kind string, namespaces []string) bool {
	for _, ns := range namespaces {
		if strings.HasPrefix(kind, ns) {
			return true
		}
	}
	return false
}

// toStatus maps engine errors onto gRPC status codes.
func toStatus(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, chat.ErrNoChatSelected):
		code = codes.FailedPrecondition
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chats.ErrEmptyName):
		code = codes.InvalidArgument
	case errors.Is(err, chat.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case chat.IsRequestFailed(err):
		code = codes.Unavailable
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}
