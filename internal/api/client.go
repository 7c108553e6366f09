package api

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/chat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client talks to a running daemon over its Unix domain socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon socket at socketPath. The connection is lazy;
// errors surface on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "Status", &Empty{})
}

// ListChats returns the loaded chat list, narrowed to search when it is set.
func (c *Client) ListChats(ctx context.Context, search string) (*ChatListResponse, error) {
	return invoke[ChatListResponse](ctx, c, "ListChats", &ListChatsRequest{Search: search})
}

func (c *Client) LoadMore(ctx context.Context) (*LoadMoreResponse, error) {
	return invoke[LoadMoreResponse](ctx, c, "LoadMore", &Empty{})
}

func (c *Client) Reload(ctx context.Context) (*ChatListResponse, error) {
	return invoke[ChatListResponse](ctx, c, "Reload", &Empty{})
}

func (c *Client) OpenChat(ctx context.Context, chatID string) (*TranscriptResponse, error) {
	return invoke[TranscriptResponse](ctx, c, "OpenChat", &ChatIDRequest{ChatID: chatID})
}

func (c *Client) CloseChat(ctx context.Context) error {
	_, err := invoke[Empty](ctx, c, "CloseChat", &Empty{})
	return err
}

func (c *Client) ActiveChat(ctx context.Context) (*TranscriptResponse, error) {
	return invoke[TranscriptResponse](ctx, c, "ActiveChat", &Empty{})
}

func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, "SendMessage", req)
}

func (c *Client) EditMessage(ctx context.Context, req *EditMessageRequest) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, "EditMessage", req)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	_, err := invoke[Empty](ctx, c, "DeleteMessage", &MessageRef{ChatID: chatID, MessageID: messageID})
	return err
}

func (c *Client) ClearMessages(ctx context.Context, chatID string) error {
	_, err := invoke[Empty](ctx, c, "ClearMessages", &ChatIDRequest{ChatID: chatID})
	return err
}

func (c *Client) CreateChat(ctx context.Context, req *CreateChatRequest) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c, "CreateChat", req)
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := invoke[Empty](ctx, c, "DeleteChat", &ChatIDRequest{ChatID: chatID})
	return err
}

func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c, "RenameGroup", &GroupRequest{ChatID: chatID, Value: name})
}

func (c *Client) SetGroupImage(ctx context.Context, chatID, image string) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c, "SetGroupImage", &GroupRequest{ChatID: chatID, Value: image})
}

func (c *Client) RemoveGroupName(ctx context.Context, chatID string) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c, "RemoveGroupName", &GroupRequest{ChatID: chatID})
}

func (c *Client) RemoveGroupImage(ctx context.Context, chatID string) (*ChatResponse, error) {
	return invoke[ChatResponse](ctx, c, "RemoveGroupImage", &GroupRequest{ChatID: chatID})
}

func (c *Client) MarkRead(ctx context.Context, chatID, messageID string) error {
	_, err := invoke[Empty](ctx, c, "MarkRead", &MessageRef{ChatID: chatID, MessageID: messageID})
	return err
}

func (c *Client) IsUnread(ctx context.Context, req *IsUnreadRequest) (bool, error) {
	resp, err := invoke[IsUnreadResponse](ctx, c, "IsUnread", req)
	if err != nil {
		return false, err
	}
	return resp.Unread, nil
}

func (c *Client) ListUsers(ctx context.Context, search string) ([]chat.User, error) {
	resp, err := invoke[UserListResponse](ctx, c, "ListUsers", &ListUsersRequest{Search: search})
	if err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// WatchStream receives events from a Watch call.
type WatchStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (w *WatchStream) Recv() (*WatchEvent, error) {
	evt := new(WatchEvent)
	if err := w.stream.RecvMsg(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// Watch opens an event stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context, namespaces ...string) (*WatchStream, error) {
	stream, err := c.conn.NewStream(ctx, &EngineServiceDesc.Streams[0], fullMethod("Watch"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchRequest{Namespaces: namespaces}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}
