package favorites

import "errors"

// ErrInvalidInput is returned when a required identifier is missing.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned when a referenced favorite does not exist.
var ErrNotFound = errors.New("not found")

// Role identifies who authored the favorited message.
type Role string

const (
	RoleUser      Role = "user"
	RoleCharacter Role = "character"
)

// ConversationType distinguishes one-on-one chats from group chats.
type ConversationType string

const (
	TypePrivate ConversationType = "private"
	TypeGroup   ConversationType = "group"
)

// FavoriteItem is a user-flagged reference to a chat message. Sender and
// Timestamp are snapshots taken at favoriting time; they are not kept in
// sync with the live message. ID is the only stable key — MessageID may go
// stale if the host deletes or renumbers the message.
type FavoriteItem struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Role      Role   `json:"role"`
	Timestamp int64  `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

// ConversationFavorites holds all favorites for one conversation.
// Exactly one of CharacterID/GroupID is set, matching Type.
// Count always equals len(Items).
type ConversationFavorites struct {
	Type        ConversationType `json:"type"`
	Name        string           `json:"name"`
	CharacterID string           `json:"characterId,omitempty"`
	GroupID     string           `json:"groupId,omitempty"`
	Count       int              `json:"count"`
	Items       []FavoriteItem   `json:"items"`
}

// OwnerID returns the character or group identifier, per Type.
func (c ConversationFavorites) OwnerID() string {
	if c.Type == TypeGroup {
		return c.GroupID
	}
	return c.CharacterID
}

// ConversationMeta describes the conversation partner at first-favorite
// time. It is only consulted when a conversation entry is created.
type ConversationMeta struct {
	Type    ConversationType
	OwnerID string
	Name    string
}

// Message is the slice of a host chat message the store needs to build a
// favorite snapshot.
type Message struct {
	ID     string
	Name   string
	IsUser bool
	SentAt int64 // epoch milliseconds; 0 means unknown
}
