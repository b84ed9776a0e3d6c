// Package conversation implements the per-open-chat controller: one page of
// history from the persistence service, merged with the live event stream,
// plus optimistic local sends reconciled against server confirmations.
package conversation

import "github.com/wayfare-social/wayfare-chat/pkg/wire"

// Identity names one conversation. A direct chat is the unordered pair of
// participant ids; a group chat is its chat id. The sealed interface keeps
// the two shapes from collapsing into optional fields.
type Identity interface {
	// Key is a stable identifier: "u:<peer>" for direct, "g:<chat>" for
	// group. It doubles as the typing-indicator conversation key.
	Key() string

	// Matches reports whether a message belongs to this conversation.
	Matches(m wire.Message) bool

	// Target is the send destination for this conversation.
	Target() wire.Target

	isIdentity()
}

// DirectIdentity is a 1:1 conversation between the current user and a
// counterpart. Matching is direction-agnostic.
type DirectIdentity struct {
	UserID string
	PeerID string
}

func (d DirectIdentity) Key() string { return "u:" + d.PeerID }

func (d DirectIdentity) Matches(m wire.Message) bool {
	if m.ChatID != "" {
		return false
	}
	return (m.SenderID == d.UserID && m.RecipientID == d.PeerID) ||
		(m.SenderID == d.PeerID && m.RecipientID == d.UserID)
}

func (d DirectIdentity) Target() wire.Target { return wire.Direct{RecipientID: d.PeerID} }

func (DirectIdentity) isIdentity() {}

// GroupIdentity is a group conversation.
type GroupIdentity struct {
	ChatID string
}

func (g GroupIdentity) Key() string { return "g:" + g.ChatID }

func (g GroupIdentity) Matches(m wire.Message) bool { return m.ChatID == g.ChatID }

func (g GroupIdentity) Target() wire.Target { return wire.Group{ChatID: g.ChatID} }

func (GroupIdentity) isIdentity() {}
