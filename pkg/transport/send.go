package transport

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/wayfare-social/wayfare-chat/pkg/logger"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

// Sender is the outbound command surface a conversation binding needs.
// Satisfied by *Conn; tests substitute a fake.
type Sender interface {
	// SendMessage encodes and transmits a send command. It returns once
	// the frame is handed to the socket; confirmation arrives later as a
	// message_sent event. Returns ErrNotConnected while the socket is
	// down, in which case nothing is transmitted.
	SendMessage(clientID string, target wire.Target, content string) error

	// SendTyping transmits a typing indicator. Best effort: failures are
	// logged and dropped, never retried.
	SendTyping(conversationID string, isGroupChat, typing bool)
}

func (c *Conn) SendMessage(clientID string, target wire.Target, content string) error {
	frame, err := wire.EncodeSend(clientID, target, content)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Conn) SendTyping(conversationID string, isGroupChat, typing bool) {
	frame, err := wire.EncodeTyping(conversationID, isGroupChat, typing)
	if err != nil {
		return
	}
	if err := c.write(frame); err != nil {
		logger.DebugCF(component, "Typing indicator dropped", map[string]any{
			"conversation": conversationID,
		})
	}
}

// write hands one frame to the socket if and only if the connection is up.
func (c *Conn) write(frame []byte) error {
	c.mu.Lock()
	ws := c.ws
	connected := c.state == wire.Connected
	c.mu.Unlock()

	if !connected || ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		// The read loop will notice the dead socket and reconnect.
		return err
	}
	return nil
}
