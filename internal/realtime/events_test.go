package realtime

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		payload string
		check   func(t *testing.T, evt Event)
	}{
		{
			name:    "new message",
			typ:     EventMessageNew,
			payload: `{"_id":"m1","chatId":"c1","content":"hi","sender":{"_id":"u2"}}`,
			check: func(t *testing.T, evt Event) {
				e := evt.(MessageNew)
				if e.Message.ID != "m1" || e.Message.ChatID != "c1" || e.Message.Sender.ID != "u2" {
					t.Errorf("got %+v", e.Message)
				}
			},
		},
		{
			name:    "edited with chat id from message",
			typ:     EventMessageEdited,
			payload: `{"message":{"_id":"m1","chatId":"c1","content":"fixed"}}`,
			check: func(t *testing.T, evt Event) {
				e := evt.(MessageEdited)
				if e.ChatID != "c1" || e.Message.Content != "fixed" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "deleted",
			typ:     EventMessageDeleted,
			payload: `{"chatId":"c1","messageId":"m1"}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(MessageDeleted); e.ChatID != "c1" || e.MessageID != "m1" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "cleared",
			typ:     EventMessagesCleared,
			payload: `{"chatId":"c1"}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(MessagesCleared); e.ChatID != "c1" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "chat created",
			typ:     EventChatNew,
			payload: `{"_id":"c9","isGroup":true,"groupName":"team"}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(ChatNew); e.Chat.ID != "c9" || !e.Chat.IsGroup {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "chat last message",
			typ:     EventChatUpdate,
			payload: `{"chatId":"c1","lastMessage":{"_id":"m5","chatId":"c1"}}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(ChatLastMessage); e.ChatID != "c1" || e.LastMessage.ID != "m5" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "group updated",
			typ:     EventChatGroupUpdated,
			payload: `{"_id":"c1","isGroup":true,"groupName":"renamed"}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(ChatUpdated); e.Chat.GroupName != "renamed" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:    "chat deleted",
			typ:     EventChatDeleted,
			payload: `{"chatId":"c1"}`,
			check: func(t *testing.T, evt Event) {
				if e := evt.(ChatDeleted); e.ChatID != "c1" {
					t.Errorf("got %+v", e)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode(Envelope{Type: tt.typ, Payload: json.RawMessage(tt.payload)})
			if err != nil {
				t.Fatal(err)
			}
			if evt.Name() != tt.typ {
				t.Errorf("Name() = %q, want %q", evt.Name(), tt.typ)
			}
			tt.check(t, evt)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		want    error
		anyFail bool
	}{
		{name: "unknown", env: Envelope{Type: "typing:start", Payload: json.RawMessage(`{}`)}, want: ErrUnknownEvent},
		{name: "message without chat", env: Envelope{Type: EventMessageNew, Payload: json.RawMessage(`{"_id":"m1"}`)}, want: ErrMalformed},
		{name: "delete without id", env: Envelope{Type: EventMessageDeleted, Payload: json.RawMessage(`{"chatId":"c1"}`)}, want: ErrMalformed},
		{name: "chat without id", env: Envelope{Type: EventChatNew, Payload: json.RawMessage(`{}`)}, want: ErrMalformed},
		{name: "bad json", env: Envelope{Type: EventChatDeleted, Payload: json.RawMessage(`[1,2]`)}, anyFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode(tt.env)
			if err == nil {
				t.Fatalf("Decode() = %v, want error", evt)
			}
			if !tt.anyFail && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
