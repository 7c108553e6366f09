package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/realtime"
	"github.com/matheus3301/chatsync/internal/status"
	"go.uber.org/fx"
	"nhooyr.io/websocket"
)

var (
	me    = chat.User{ID: "me", Name: "Me"}
	other = chat.User{ID: "u2", Name: "Ana"}
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvBackendURL, config.EnvRealtimeURL, config.EnvToken, profile.HomeEnv} {
		t.Setenv(k, "")
	}
}

// shortHome returns a home directory short enough for Unix socket paths.
func shortHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "cs-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fakeREST(t *testing.T) string {
	t.Helper()
	chats := []chat.Chat{
		{ID: "c1", Participants: []chat.User{me, other}, LastMessage: &chat.Message{ID: "m1", ChatID: "c1", Sender: other}},
		{ID: "c2", Participants: []chat.User{me, other}},
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/chat/all", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, backend.ChatPage{Chats: chats})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		for _, c := range chats {
			if c.ID == id {
				writeJSON(w, http.StatusOK, chat.Transcript{Chat: c, Messages: []chat.Message{*c.LastMessage}})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Chat not found"})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

// fakeChannel accepts one websocket client at a time and writes every frame
// sent on the returned channel to it.
func fakeChannel(t *testing.T) (string, chan<- []byte) {
	t.Helper()
	push := make(chan []byte, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-push:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), push
}

func frame(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	p, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(realtime.Envelope{Type: typ, Payload: p})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	clearEnv(t)
	home := shortHome(t)
	wsURL, push := fakeChannel(t)
	if err := config.Save(profile.ConfigPath(home), &config.Config{
		BackendURL:  fakeREST(t),
		RealtimeURL: wsURL,
		UserID:      me.ID,
		UserName:    me.Name,
	}); err != nil {
		t.Fatal(err)
	}

	p, err := LoadParams(home, "")
	if err != nil {
		t.Fatalf("LoadParams error = %v", err)
	}
	if p.Profile.Name != profile.DefaultName {
		t.Errorf("profile = %q, want %q", p.Profile.Name, profile.DefaultName)
	}

	app := fx.New(Module(p), fx.NopLogger)
	if err := app.Err(); err != nil {
		t.Fatalf("fx graph error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start error = %v", err)
	}

	info, err := os.Stat(p.Profile.SocketPath())
	if err != nil {
		t.Fatalf("socket not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	c, err := api.Dial(p.Profile.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	eventually(t, "initial load and connection", func() bool {
		st, err := c.Status(ctx)
		return err == nil && st.Chats == 2 && st.Connection == string(status.Connected)
	})

	if _, err := c.OpenChat(ctx, "c1"); err != nil {
		t.Fatalf("OpenChat error = %v", err)
	}
	push <- frame(t, realtime.EventMessageNew, chat.Message{ID: "m2", ChatID: "c1", Sender: other, Content: "pushed"})
	push <- frame(t, realtime.EventChatDeleted, map[string]string{"chatId": "c2"})

	eventually(t, "pushed message in transcript", func() bool {
		resp, err := c.ActiveChat(ctx)
		if err != nil || resp.Transcript == nil {
			return false
		}
		return resp.Transcript.IndexOf("m2") >= 0
	})
	eventually(t, "deleted chat dropped from list", func() bool {
		list, err := c.ListChats(ctx, "")
		return err == nil && len(list.Chats) == 1 && list.Chats[0].ID == "c1"
	})

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if _, err := os.Stat(p.Profile.SocketPath()); !os.IsNotExist(err) {
		t.Errorf("socket still present after stop: %v", err)
	}
	lk, err := lock.Acquire(p.Profile.LockPath())
	if err != nil {
		t.Fatalf("lock not released after stop: %v", err)
	}
	_ = lk.Release()
}

func TestSecondDaemonRefused(t *testing.T) {
	clearEnv(t)
	home := shortHome(t)
	p, err := profile.New(home, "busy")
	if err != nil {
		t.Fatal(err)
	}
	lk, err := lock.Acquire(p.LockPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	app := fx.New(Module(Params{
		Profile: p,
		Config:  &config.Config{BackendURL: "http://127.0.0.1:1/api", RealtimeURL: "ws://127.0.0.1:1/ws", UserID: "me"},
	}), fx.NopLogger)
	if app.Err() == nil {
		t.Fatal("second daemon on a held profile built without error")
	}
	if _, err := os.Stat(p.SocketPath()); err == nil {
		t.Error("second daemon created a socket")
	}
}

func TestLoadParams(t *testing.T) {
	clearEnv(t)
	home := shortHome(t)

	if _, err := LoadParams(home, ""); err == nil {
		t.Error("LoadParams without backend url succeeded")
	}
	if _, err := LoadParams(home, "../x"); err == nil {
		t.Error("LoadParams accepted an invalid profile name")
	}

	if err := config.Save(profile.ConfigPath(home), &config.Config{
		DefaultProfile: "work",
		BackendURL:     "https://chat.example.com/api",
		RealtimeURL:    "wss://chat.example.com/ws",
	}); err != nil {
		t.Fatal(err)
	}
	work, _ := profile.New(home, "work")
	if err := os.MkdirAll(work.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(work.EnvPath(), []byte(config.EnvToken+"=secret\n"), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadParams(home, "")
	if err != nil {
		t.Fatalf("LoadParams error = %v", err)
	}
	if p.Profile.Name != "work" {
		t.Errorf("profile = %q, want work", p.Profile.Name)
	}
	if p.Config.Token != "secret" {
		t.Errorf("token = %q, want secret from .env", p.Config.Token)
	}

	p, err = LoadParams(home, "personal")
	if err != nil {
		t.Fatal(err)
	}
	if p.Profile.Dir != filepath.Join(home, "profiles", "personal") {
		t.Errorf("dir = %q", p.Profile.Dir)
	}
	if p.Config.Token != "" {
		t.Errorf("token leaked across profiles: %q", p.Config.Token)
	}
}
