package wire

// ConnState is the transport connection state. It is owned by the transport
// and read-only everywhere else.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Event is a decoded inbound frame. The sealed interface forces subscribers
// through an exhaustive type switch so a new event variant cannot be silently
// mishandled.
type Event interface {
	isEvent()
}

// MessageEvent carries a chat message. Echo is true for message_sent frames,
// the server's confirmation of this client's own send.
type MessageEvent struct {
	Echo    bool
	Message Message
}

// TypingEvent reports that the counterpart in a conversation started or
// stopped typing. The server is not required to deliver a matching stop;
// the presence tracker self-expires the flag.
type TypingEvent struct {
	ConversationID string `json:"id"`
	IsGroupChat    bool   `json:"isGroupChat"`
	Typing         bool   `json:"-"`
}

// PresenceEvent reports a peer coming online or going offline.
type PresenceEvent struct {
	UserID string `json:"userId"`
	Online bool   `json:"-"`
}

// ConnectionAck is the server's post-authentication snapshot of currently
// online peers. It replaces, not augments, any previously known online set.
type ConnectionAck struct {
	OnlineUsers []string `json:"onlineUsers"`
}

// StateChange is published locally by the transport when the connection
// state moves; it never arrives on the wire.
type StateChange struct {
	State ConnState
}

func (MessageEvent) isEvent()  {}
func (TypingEvent) isEvent()   {}
func (PresenceEvent) isEvent() {}
func (ConnectionAck) isEvent() {}
func (StateChange) isEvent()   {}
