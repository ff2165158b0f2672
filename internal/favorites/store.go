package favorites

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store owns the mapping from conversation id to its favorites collection.
// Every successful mutation calls the persist callback exactly once; the
// callback is expected to debounce and write asynchronously (see the
// settings package), so mutators never block on I/O.
//
// Failures are detected before any state change, so a rejected call leaves
// the store untouched.
type Store struct {
	mu      sync.RWMutex
	chats   map[string]*ConversationFavorites
	persist func()
	clock   Clock
}

// NewStore creates an empty store. persist may be nil.
func NewStore(persist func()) *Store {
	return NewStoreWithClock(persist, realClock{})
}

// NewStoreWithClock creates a store with a custom clock (for testing).
func NewStoreWithClock(persist func(), clock Clock) *Store {
	return &Store{
		chats:   make(map[string]*ConversationFavorites),
		persist: persist,
		clock:   clock,
	}
}

func (s *Store) signalPersist() {
	if s.persist != nil {
		s.persist()
	}
}

// Add favorites a message in the given conversation. The conversation entry
// is created lazily from meta on first favorite. The item's timestamp falls
// back to the current time when the message carries none.
func (s *Store) Add(conversationID string, msg Message, meta ConversationMeta) (FavoriteItem, error) {
	if conversationID == "" || msg.ID == "" {
		return FavoriteItem{}, fmt.Errorf("%w: conversation id and message id are required", ErrInvalidInput)
	}

	role := RoleCharacter
	if msg.IsUser {
		role = RoleUser
	}
	ts := msg.SentAt
	if ts == 0 {
		ts = s.clock.Now().UnixMilli()
	}

	item := FavoriteItem{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		Sender:    msg.Name,
		Role:      role,
		Timestamp: ts,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[conversationID]
	if !ok {
		chat = &ConversationFavorites{
			Type: meta.Type,
			Name: meta.Name,
		}
		if meta.Type == TypeGroup {
			chat.GroupID = meta.OwnerID
		} else {
			chat.CharacterID = meta.OwnerID
		}
		s.chats[conversationID] = chat
	}

	chat.Items = append(chat.Items, item)
	chat.Count = len(chat.Items)

	s.signalPersist()
	return item, nil
}

// RemoveByMessage removes every favorite referencing messageID (at most one
// in practice). It reports whether anything was removed; an unknown
// conversation or message is a no-op, not an error.
func (s *Store) RemoveByMessage(conversationID, messageID string) bool {
	if conversationID == "" || messageID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[conversationID]
	if !ok {
		return false
	}

	kept := chat.Items[:0]
	for _, it := range chat.Items {
		if it.MessageID != messageID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(chat.Items) {
		return false
	}

	s.shrink(conversationID, chat, kept)
	s.signalPersist()
	return true
}

// RemoveByID removes a single favorite by its stable id and returns the
// message id it referenced, so callers can revert any icon keyed by it.
// ok is false when the favorite does not exist in that conversation.
func (s *Store) RemoveByID(conversationID, favoriteID string) (messageID string, ok bool) {
	if conversationID == "" || favoriteID == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, found := s.chats[conversationID]
	if !found {
		return "", false
	}

	idx := -1
	for i, it := range chat.Items {
		if it.ID == favoriteID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}

	messageID = chat.Items[idx].MessageID
	s.shrink(conversationID, chat, append(chat.Items[:idx], chat.Items[idx+1:]...))
	s.signalPersist()
	return messageID, true
}

// SetNote sets (or, with an empty string, clears) the note on a favorite.
// The note is trimmed before storing. Returns ErrNotFound when the favorite
// does not exist.
func (s *Store) SetNote(conversationID, favoriteID, note string) error {
	if conversationID == "" || favoriteID == "" {
		return fmt.Errorf("%w: conversation id and favorite id are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[conversationID]
	if !ok {
		return ErrNotFound
	}
	for i := range chat.Items {
		if chat.Items[i].ID == favoriteID {
			chat.Items[i].Note = strings.TrimSpace(note)
			s.signalPersist()
			return nil
		}
	}
	return ErrNotFound
}

// PruneInvalid removes every favorite whose message id is absent from live
// and returns the number removed. Calling it again with the same live set
// removes nothing.
func (s *Store) PruneInvalid(conversationID string, live map[string]struct{}) int {
	if conversationID == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[conversationID]
	if !ok {
		return 0
	}

	kept := chat.Items[:0]
	for _, it := range chat.Items {
		if _, alive := live[it.MessageID]; alive {
			kept = append(kept, it)
		}
	}
	removed := len(chat.Items) - len(kept)
	if removed == 0 {
		return 0
	}

	s.shrink(conversationID, chat, kept)
	s.signalPersist()
	return removed
}

// shrink applies the emptiness invariant after a removal: the entry is
// dropped entirely when its last item goes away. Caller holds the lock.
func (s *Store) shrink(conversationID string, chat *ConversationFavorites, kept []FavoriteItem) {
	chat.Items = kept
	chat.Count = len(kept)
	if chat.Count == 0 {
		delete(s.chats, conversationID)
	}
}

// Conversation returns a copy of the favorites collection for the given
// conversation, or nil if it has none.
func (s *Store) Conversation(conversationID string) *ConversationFavorites {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[conversationID]
	if !ok {
		return nil
	}
	cp := *chat
	cp.Items = append([]FavoriteItem(nil), chat.Items...)
	return &cp
}

// All returns a copy of every conversation's favorites, keyed by
// conversation id, for the cross-conversation overview.
func (s *Store) All() map[string]ConversationFavorites {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ConversationFavorites, len(s.chats))
	for id, chat := range s.chats {
		cp := *chat
		cp.Items = append([]FavoriteItem(nil), chat.Items...)
		out[id] = cp
	}
	return out
}

// Snapshot serializes the whole store in the persisted settings shape.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.chats, "", "  ")
}

// Restore replaces the store contents from a previously persisted snapshot.
// Counts are recomputed from the item lists and empty entries are dropped,
// so a hand-edited or stale file cannot break the store invariants.
func (s *Store) Restore(data []byte) error {
	chats := make(map[string]*ConversationFavorites)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &chats); err != nil {
			return fmt.Errorf("parsing favorites snapshot: %w", err)
		}
	}

	for id, chat := range chats {
		if chat == nil || len(chat.Items) == 0 {
			delete(chats, id)
			continue
		}
		chat.Count = len(chat.Items)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	return nil
}
