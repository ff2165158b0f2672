package host

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/yuncengfeihou/favmark/internal/favorites"
)

const fixtureSchema = `
CREATE TABLE conversations (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	owner_name TEXT NOT NULL
);
CREATE TABLE messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	is_user INTEGER NOT NULL,
	body TEXT NOT NULL,
	sent_at INTEGER NOT NULL
);
CREATE TABLE app_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// openFixtureDB writes a small frontend-style chat database into a temp dir
// and returns a read-only ChatDB over it.
func openFixtureDB(t *testing.T) *ChatDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("creating fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("creating fixture schema: %v", err)
	}

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO conversations VALUES ('c1', 'private', 'char1', 'Bob')`, nil},
		{`INSERT INTO conversations VALUES ('g1', 'group', 'grp9', 'The Council')`, nil},
		{`INSERT INTO messages VALUES ('m1', 'c1', 'Alice', 1, 'hello there', 1000)`, nil},
		{`INSERT INTO messages VALUES ('m2', 'c1', 'Bob', 0, 'well met', 2000)`, nil},
		{`INSERT INTO app_state VALUES ('active_conversation', 'c1')`, nil},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.query, s.args...); err != nil {
			t.Fatalf("inserting fixture row: %v", err)
		}
	}

	chatDB, err := OpenChatDB(path)
	if err != nil {
		t.Fatalf("OpenChatDB: %v", err)
	}
	t.Cleanup(func() { chatDB.Close() })
	return chatDB
}

func TestCurrentConversationID(t *testing.T) {
	db := openFixtureDB(t)

	id, err := db.CurrentConversationID()
	if err != nil {
		t.Fatalf("CurrentConversationID: %v", err)
	}
	if id != "c1" {
		t.Errorf("id = %q, want c1", id)
	}
}

func TestMessagesOrdered(t *testing.T) {
	db := openFixtureDB(t)

	msgs, err := db.Messages("c1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("messages out of order: %+v", msgs)
	}
	if !msgs[0].IsUser || msgs[0].Name != "Alice" || msgs[0].Text != "hello there" || msgs[0].SentAt != 1000 {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
}

func TestMessagesUnknownConversation(t *testing.T) {
	db := openFixtureDB(t)

	msgs, err := db.Messages("c404")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages for unknown conversation, want 0", len(msgs))
	}
}

func TestMeta(t *testing.T) {
	db := openFixtureDB(t)

	cases := []struct {
		id   string
		want favorites.ConversationMeta
	}{
		{"c1", favorites.ConversationMeta{Type: favorites.TypePrivate, OwnerID: "char1", Name: "Bob"}},
		{"g1", favorites.ConversationMeta{Type: favorites.TypeGroup, OwnerID: "grp9", Name: "The Council"}},
	}
	for _, tc := range cases {
		meta, err := db.Meta(tc.id)
		if err != nil {
			t.Fatalf("Meta(%s): %v", tc.id, err)
		}
		if meta != tc.want {
			t.Errorf("Meta(%s) = %+v, want %+v", tc.id, meta, tc.want)
		}
	}
}

func TestMetaNotFound(t *testing.T) {
	db := openFixtureDB(t)

	if _, err := db.Meta("c404"); !errors.Is(err, favorites.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMissingDatabaseIsUnavailable(t *testing.T) {
	db, err := OpenChatDB(filepath.Join(t.TempDir(), "absent.db"))
	if err != nil {
		t.Fatalf("OpenChatDB: %v", err)
	}
	defer db.Close()

	if _, err := db.Messages("c1"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Messages on missing db: err = %v, want ErrUnavailable", err)
	}
	if _, err := db.CurrentConversationID(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("CurrentConversationID on missing db: err = %v, want ErrUnavailable", err)
	}
}
