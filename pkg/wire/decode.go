package wire

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// DecodeEvent decodes one inbound frame. It returns (nil, false) for frames
// with an unknown or missing type discriminant and for payloads that fail to
// unmarshal: forward compatibility over strictness.
func DecodeEvent(data []byte) (Event, bool) {
	typ := gjson.GetBytes(data, "type")
	if !typ.Exists() {
		return nil, false
	}

	switch typ.String() {
	case TypeMessage, TypeMessageSent:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return MessageEvent{Echo: typ.String() == TypeMessageSent, Message: msg}, true

	case TypeTypingStart, TypeTypingStop:
		var ev TypingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		ev.Typing = typ.String() == TypeTypingStart
		return ev, true

	case TypeUserOnline, TypeUserOffline:
		var ev PresenceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		ev.Online = typ.String() == TypeUserOnline
		return ev, true

	case TypeConnectionAck:
		var ev ConnectionAck
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	default:
		return nil, false
	}
}
