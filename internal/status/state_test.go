package status

import (
	"testing"

	"github.com/matheus3301/chatsync/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Idle {
		t.Errorf("initial state = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
	}{
		{"connect", []State{Connecting, Connected}},
		{"drop and recover", []State{Connecting, Connected, Reconnecting, Connecting, Connected}},
		{"dial failure", []State{Connecting, Reconnecting, Connecting}},
		{"stop while connected", []State{Connecting, Connected, Stopped}},
		{"restart", []State{Connecting, Stopped, Connecting}},
		{"stop before start", []State{Stopped}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			for _, s := range tt.path {
				if err := m.Transition(s); err != nil {
					t.Fatalf("Transition(%s) error = %v", s, err)
				}
			}
			if want := tt.path[len(tt.path)-1]; m.Current() != want {
				t.Errorf("state = %s, want %s", m.Current(), want)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from []State
		to   State
	}{
		{nil, Connected},
		{nil, Reconnecting},
		{[]State{Connecting, Connected}, Connecting},
		{[]State{Stopped}, Stopped},
		{[]State{Stopped}, Connected},
	}
	for _, tt := range tests {
		m := NewMachine(nil)
		for _, s := range tt.from {
			if err := m.Transition(s); err != nil {
				t.Fatal(err)
			}
		}
		before := m.Current()
		if err := m.Transition(tt.to); err == nil {
			t.Errorf("Transition(%s -> %s) should fail", before, tt.to)
		}
		if m.Current() != before {
			t.Errorf("state changed to %s on rejected transition", m.Current())
		}
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindConnStatus {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindConnStatus)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Idle || change.To != Connecting {
		t.Errorf("change = %v -> %v, want IDLE -> CONNECTING", change.From, change.To)
	}
}
