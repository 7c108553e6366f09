package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/backend"
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

var (
	me    = chat.User{ID: "me", Name: "Me"}
	other = chat.User{ID: "u2", Name: "Ana"}
)

// fakeBackend serves two chats and accepts sends.
type fakeBackend struct {
	mu    sync.Mutex
	chats map[string]chat.Transcript
	order []string
	sent  int
}

func newFakeBackend() *fakeBackend {
	c1 := chat.Transcript{
		Chat: chat.Chat{ID: "c1", Participants: []chat.User{me, other},
			LastMessage: &chat.Message{ID: "m2", ChatID: "c1", Sender: other, Content: "hi"}},
		Messages: []chat.Message{
			{ID: "m1", ChatID: "c1", Sender: me, Content: "hello"},
			{ID: "m2", ChatID: "c1", Sender: other, Content: "hi"},
		},
	}
	c2 := chat.Transcript{
		Chat: chat.Chat{ID: "c2", Participants: []chat.User{me, other},
			LastMessage: &chat.Message{ID: "m9", ChatID: "c2", Sender: me, Content: "bye"}},
		Messages: []chat.Message{{ID: "m9", ChatID: "c2", Sender: me, Content: "bye"}},
	}
	return &fakeBackend{
		chats: map[string]chat.Transcript{"c1": c1, "c2": c2},
		order: []string{"c1", "c2"},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/chat/all", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		page := backend.ChatPage{}
		for _, id := range f.order {
			page.Chats = append(page.Chats, f.chats[id].Chat)
		}
		writeJSON(w, http.StatusOK, page)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/user/all", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []chat.User{other, {ID: "u3", Name: "Bruno"}},
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/chat/message/send", func(w http.ResponseWriter, req *http.Request) {
		var body backend.SendRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		f.sent++
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{
			"userMessage": chat.Message{ID: "srv-1", ChatID: body.ChatID, Sender: me, Content: body.Content},
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/chat/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		t, ok := f.chats[mux.Vars(req)["id"]]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Chat not found"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}).Methods(http.MethodGet)
	return r
}

type harness struct {
	client *Client
	bus    *bus.Bus
	store  *store.Store
}

func setup(t *testing.T) *harness {
	t.Helper()

	rest := httptest.NewServer(newFakeBackend().router())
	t.Cleanup(rest.Close)

	// Short path keeps the socket under the platform length limit.
	dir, err := os.MkdirTemp("/tmp", "chatsync-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "d.sock")

	logger := zap.NewNop()
	b := bus.New()
	st := store.New(b, logger)
	be := backend.New(rest.URL+"/api", "token")
	identity := auth.Identity{User: me}

	srv := NewServer(Deps{
		Profile:  "test",
		Store:    st,
		Cursor:   pager.NewCursor(st, be, 5, 20, logger),
		Sender:   outbox.NewSender(st, be, identity, b, logger),
		Chats:    chats.NewService(st, be, logger),
		Users:    be,
		Machine:  status.NewMachine(b),
		Bus:      b,
		Identity: identity,
		Logger:   logger,
	})

	grpcSrv := grpc.NewServer()
	Register(grpcSrv, srv)
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	c, err := Dial(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &harness{client: c, bus: b, store: st}
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStatusAndChatList(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)

	st, err := h.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status error = %v", err)
	}
	if st.Profile != "test" || st.UserID != "me" {
		t.Errorf("status = %+v", st)
	}
	if st.Connection != string(status.Idle) {
		t.Errorf("connection = %q, want %q", st.Connection, status.Idle)
	}
	if st.Chats != 0 {
		t.Errorf("chats before reload = %d, want 0", st.Chats)
	}

	list, err := h.client.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload error = %v", err)
	}
	if len(list.Chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(list.Chats))
	}
	if list.HasMore {
		t.Error("hasMore = true, want false")
	}
	unread := map[string]bool{}
	for _, c := range list.Chats {
		unread[c.ID] = c.Unread
	}
	if !unread["c1"] {
		t.Error("c1 last message from another user should be unread")
	}
	if unread["c2"] {
		t.Error("c2 last message is our own and should not be unread")
	}

	more, err := h.client.LoadMore(ctx)
	if err != nil {
		t.Fatalf("LoadMore error = %v", err)
	}
	if more.Loaded {
		t.Error("LoadMore loaded a page with hasMore = false")
	}
}

func TestChatSearch(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)
	if _, err := h.client.Reload(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		search string
		want   int
	}{
		{"", 2},
		{"ana", 2},
		{"ANA", 2},
		{"me", 0},
		{"zed", 0},
	}
	for _, tt := range tests {
		list, err := h.client.ListChats(ctx, tt.search)
		if err != nil {
			t.Fatal(err)
		}
		if len(list.Chats) != tt.want {
			t.Errorf("search %q got %d chats, want %d", tt.search, len(list.Chats), tt.want)
		}
	}
}

func TestListUsers(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)

	all, err := h.client.ListUsers(ctx, "")
	if err != nil {
		t.Fatalf("ListUsers error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d users, want 2", len(all))
	}

	found, err := h.client.ListUsers(ctx, "bru")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "u3" {
		t.Errorf("search bru = %+v, want [u3]", found)
	}
}

func TestOpenMarksRead(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)

	if _, err := h.client.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := h.client.OpenChat(ctx, "c1")
	if err != nil {
		t.Fatalf("OpenChat error = %v", err)
	}
	if resp.Transcript == nil || len(resp.Transcript.Messages) != 2 {
		t.Fatalf("transcript = %+v", resp.Transcript)
	}

	list, err := h.client.ListChats(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range list.Chats {
		if c.Unread {
			t.Errorf("chat %s unread after opening", c.ID)
		}
	}

	unread, err := h.client.IsUnread(ctx, &IsUnreadRequest{
		ChatID:  "c1",
		Message: &chat.Message{ID: "m3", Sender: other},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !unread {
		t.Error("newer message from another user should be unread")
	}
	if err := h.client.MarkRead(ctx, "c1", "m3"); err != nil {
		t.Fatal(err)
	}
	if id, _ := h.store.LastRead("c1"); id != "m3" {
		t.Errorf("last read = %q, want m3", id)
	}

	if err := h.client.CloseChat(ctx); err != nil {
		t.Fatal(err)
	}
	active, err := h.client.ActiveChat(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.Transcript != nil {
		t.Errorf("active transcript after close = %+v", active.Transcript)
	}
}

func TestSendStreamsLifecycle(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)

	if _, err := h.client.OpenChat(ctx, "c1"); err != nil {
		t.Fatal(err)
	}

	before := h.bus.Len()
	stream, err := h.client.Watch(ctx, "message.")
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.bus.Len() == before {
		if time.Now().After(deadline) {
			t.Fatal("watch never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := h.client.SendMessage(ctx, &SendMessageRequest{ChatID: "c1", Content: "  yo  ", ReplyToID: "m2"})
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	if resp.Message.ID != "srv-1" || resp.Message.Pending() {
		t.Errorf("message = %+v", resp.Message)
	}

	var kinds []string
	for len(kinds) < 2 {
		evt, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv error = %v", err)
		}
		if evt.Profile != "test" || evt.EventID == "" {
			t.Errorf("event = %+v", evt)
		}
		kinds = append(kinds, evt.Kind)
		if evt.Kind == bus.KindMessageSendAck {
			var p map[string]string
			if err := json.Unmarshal(evt.Payload, &p); err != nil {
				t.Fatal(err)
			}
			if p["message_id"] != "srv-1" {
				t.Errorf("ack payload = %v", p)
			}
		}
	}
	if kinds[0] != bus.KindMessageSending || kinds[1] != bus.KindMessageSendAck {
		t.Errorf("kinds = %v", kinds)
	}

	active, err := h.client.ActiveChat(ctx)
	if err != nil {
		t.Fatal(err)
	}
	msgs := active.Transcript.Messages
	if last := msgs[len(msgs)-1]; last.ID != "srv-1" {
		t.Errorf("last message = %q, want srv-1", last.ID)
	}
}

func TestErrorCodes(t *testing.T) {
	h := setup(t)
	ctx := ctxT(t)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"open missing chat", func() error {
			_, err := h.client.OpenChat(ctx, "nope")
			return err
		}, codes.NotFound},
		{"send without chat", func() error {
			_, err := h.client.SendMessage(ctx, &SendMessageRequest{Content: "x"})
			return err
		}, codes.FailedPrecondition},
		{"send empty", func() error {
			_, err := h.client.SendMessage(ctx, &SendMessageRequest{ChatID: "c1", Content: "   "})
			return err
		}, codes.InvalidArgument},
		{"rename to blank", func() error {
			_, err := h.client.RenameGroup(ctx, "c1", " ")
			return err
		}, codes.InvalidArgument},
		{"backend route missing", func() error {
			return h.client.DeleteChat(ctx, "c1")
		}, codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := grpcstatus.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestToStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", chat.ErrNotFound, codes.NotFound},
		{"backend 500", chat.RequestFailed("op", 500, errors.New("boom")), codes.Unavailable},
		{"transport error", chat.RequestFailed("op", 0, errors.New("connection refused")), codes.Unavailable},
		{"deadline inside request failure", chat.RequestFailed("op", 0, context.DeadlineExceeded), codes.DeadlineExceeded},
		{"cancel inside request failure", chat.RequestFailed("op", 0, fmt.Errorf("do: %w", context.Canceled)), codes.Canceled},
		{"bare deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"unknown", errors.New("x"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grpcstatus.Code(toStatus("Op", tt.err)); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
