package host

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/yuncengfeihou/favmark/internal/favorites"
)

// ChatDB reads the frontend's chat database. It is opened read-only: the
// frontend owns that file and favmark must never write to it.
//
// Expected schema:
//
//	conversations(id, kind, owner_id, owner_name)   kind: 'private' | 'group'
//	messages(id, conversation_id, sender, is_user, body, sent_at)
//	app_state(key, value)                           key 'active_conversation'
type ChatDB struct {
	db *sql.DB
}

// OpenChatDB prepares a read-only handle on the frontend's database. The
// connection is established lazily, so a missing file surfaces as
// ErrUnavailable on first query rather than at startup — the sidecar stays
// useful (favorites remain readable) while the frontend is down.
func OpenChatDB(path string) (*ChatDB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening chat database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &ChatDB{db: db}, nil
}

// Close closes the underlying database connection.
func (c *ChatDB) Close() error {
	return c.db.Close()
}

func (c *ChatDB) CurrentConversationID() (string, error) {
	var id string
	err := c.db.QueryRow(`SELECT value FROM app_state WHERE key = 'active_conversation'`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading active conversation: %v", ErrUnavailable, err)
	}
	return id, nil
}

func (c *ChatDB) Messages(conversationID string) ([]Message, error) {
	rows, err := c.db.Query(`
		SELECT id, sender, is_user, body, sent_at
		FROM messages WHERE conversation_id = ?
		ORDER BY sent_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.IsUser, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("%w: scanning message: %v", ErrUnavailable, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading messages: %v", ErrUnavailable, err)
	}
	return msgs, nil
}

func (c *ChatDB) Meta(conversationID string) (favorites.ConversationMeta, error) {
	var kind, ownerID, ownerName string
	err := c.db.QueryRow(`
		SELECT kind, owner_id, owner_name
		FROM conversations WHERE id = ?`, conversationID).Scan(&kind, &ownerID, &ownerName)
	if err == sql.ErrNoRows {
		return favorites.ConversationMeta{}, fmt.Errorf("conversation %s: %w", conversationID, favorites.ErrNotFound)
	}
	if err != nil {
		return favorites.ConversationMeta{}, fmt.Errorf("%w: reading conversation: %v", ErrUnavailable, err)
	}

	typ := favorites.TypePrivate
	if kind == "group" {
		typ = favorites.TypeGroup
	}
	return favorites.ConversationMeta{Type: typ, OwnerID: ownerID, Name: ownerName}, nil
}
