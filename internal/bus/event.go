package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the engine. Realtime events use the "rt." prefix
// followed by the channel event name, e.g. "rt.message:new".
const (
	KindChatsChanged      = "store.chats"
	KindTranscriptChanged = "store.transcript"
	KindReadChanged       = "store.read"

	KindMessageSending    = "message.sending"
	KindMessageSendAck    = "message.send_ack"
	KindMessageSendFailed = "message.send_failed"

	KindConnStatus = "conn.status_changed"

	RealtimePrefix = "rt."
)

// Now returns an event of the given kind stamped with the current time.
func Now(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
