package wire

import "encoding/json"

// sendCommand is the outbound send frame. ClientID is the client-generated
// correlation id; servers that echo it back make optimistic reconciliation
// exact instead of heuristic.
type sendCommand struct {
	Type        string `json:"type"`
	ClientID    string `json:"client_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	ChatID      string `json:"chat_id,omitempty"`
	Content     string `json:"content"`
}

type typingCommand struct {
	Type           string `json:"type"`
	ConversationID string `json:"id"`
	IsGroupChat    bool   `json:"isGroupChat"`
}

// EncodeSend encodes a send command for the given target.
func EncodeSend(clientID string, target Target, content string) ([]byte, error) {
	cmd := sendCommand{ClientID: clientID, Content: content}
	switch t := target.(type) {
	case Direct:
		cmd.Type = TypeSendMessage
		cmd.RecipientID = t.RecipientID
	case Group:
		cmd.Type = TypeSendGroupMessage
		cmd.ChatID = t.ChatID
	default:
		return nil, ErrAmbiguousTarget
	}
	return json.Marshal(cmd)
}

// EncodeTyping encodes a typing indicator frame.
func EncodeTyping(conversationID string, isGroupChat, typing bool) ([]byte, error) {
	typ := TypeTypingStop
	if typing {
		typ = TypeTypingStart
	}
	return json.Marshal(typingCommand{
		Type:           typ,
		ConversationID: conversationID,
		IsGroupChat:    isGroupChat,
	})
}
