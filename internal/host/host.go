// Package host adapts the chat frontend's data for the favorites core: the
// currently loaded conversation, its live message list, and conversation
// metadata. The favorites feature only reads from the host; it never writes.
package host

import (
	"errors"

	"github.com/yuncengfeihou/favmark/internal/favorites"
)

// ErrUnavailable is returned when live chat data cannot be reached, e.g.
// the frontend's database is missing or locked. Callers decide whether to
// surface it ("Cannot validate messages. Try refreshing.") or degrade.
var ErrUnavailable = errors.New("chat host unavailable")

// Message is one live chat message as the frontend stores it.
type Message struct {
	ID     string
	Name   string
	IsUser bool
	Text   string
	SentAt int64 // epoch milliseconds
}

// Unconfigured is the Source used when no chat database path is set.
// Every call reports the host as unavailable.
type Unconfigured struct{}

func (Unconfigured) CurrentConversationID() (string, error) {
	return "", ErrUnavailable
}

func (Unconfigured) Messages(string) ([]Message, error) {
	return nil, ErrUnavailable
}

func (Unconfigured) Meta(string) (favorites.ConversationMeta, error) {
	return favorites.ConversationMeta{}, ErrUnavailable
}

// Source supplies host chat data to the API and CLI layers.
type Source interface {
	// CurrentConversationID returns the id of the conversation the
	// frontend has loaded, or "" when no chat is open.
	CurrentConversationID() (string, error)
	// Messages returns the live message list for a conversation in order.
	Messages(conversationID string) ([]Message, error)
	// Meta describes the conversation partner, used when a conversation
	// gets its first favorite.
	Meta(conversationID string) (favorites.ConversationMeta, error)
}
