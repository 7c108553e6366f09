package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name of the engine.
const ServiceName = "chatsync.v1.Engine"

// EngineServer is the daemon side of the engine service.
type EngineServer interface {
	Status(context.Context, *Empty) (*StatusResponse, error)
	ListChats(context.Context, *ListChatsRequest) (*ChatListResponse, error)
	LoadMore(context.Context, *Empty) (*LoadMoreResponse, error)
	Reload(context.Context, *Empty) (*ChatListResponse, error)
	OpenChat(context.Context, *ChatIDRequest) (*TranscriptResponse, error)
	CloseChat(context.Context, *Empty) (*Empty, error)
	ActiveChat(context.Context, *Empty) (*TranscriptResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*MessageResponse, error)
	EditMessage(context.Context, *EditMessageRequest) (*MessageResponse, error)
	DeleteMessage(context.Context, *MessageRef) (*Empty, error)
	ClearMessages(context.Context, *ChatIDRequest) (*Empty, error)
	CreateChat(context.Context, *CreateChatRequest) (*ChatResponse, error)
	DeleteChat(context.Context, *ChatIDRequest) (*Empty, error)
	RenameGroup(context.Context, *GroupRequest) (*ChatResponse, error)
	SetGroupImage(context.Context, *GroupRequest) (*ChatResponse, error)
	RemoveGroupName(context.Context, *GroupRequest) (*ChatResponse, error)
	RemoveGroupImage(context.Context, *GroupRequest) (*ChatResponse, error)
	MarkRead(context.Context, *MessageRef) (*Empty, error)
	IsUnread(context.Context, *IsUnreadRequest) (*IsUnreadResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*UserListResponse, error)
	Watch(*WatchRequest, grpc.ServerStream) error
}

func unary[Req, Resp any](name string, call func(EngineServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(EngineServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// EngineServiceDesc describes the engine service for grpc.Server.RegisterService.
var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", EngineServer.Status),
		unary("ListChats", EngineServer.ListChats),
		unary("LoadMore", EngineServer.LoadMore),
		unary("Reload", EngineServer.Reload),
		unary("OpenChat", EngineServer.OpenChat),
		unary("CloseChat", EngineServer.CloseChat),
		unary("ActiveChat", EngineServer.ActiveChat),
		unary("SendMessage", EngineServer.SendMessage),
		unary("EditMessage", EngineServer.EditMessage),
		unary("DeleteMessage", EngineServer.DeleteMessage),
		unary("ClearMessages", EngineServer.ClearMessages),
		unary("CreateChat", EngineServer.CreateChat),
		unary("DeleteChat", EngineServer.DeleteChat),
		unary("RenameGroup", EngineServer.RenameGroup),
		unary("SetGroupImage", EngineServer.SetGroupImage),
		unary("RemoveGroupName", EngineServer.RemoveGroupName),
		unary("RemoveGroupImage", EngineServer.RemoveGroupImage),
		unary("MarkRead", EngineServer.MarkRead),
		unary("IsUnread", EngineServer.IsUnread),
		unary("ListUsers", EngineServer.ListUsers),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(EngineServer).Watch(in, stream)
			},
		},
	},
	Metadata: "chatsync/v1/engine",
}

// Register attaches srv to the grpc server.
func Register(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}
