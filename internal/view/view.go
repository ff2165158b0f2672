// Package view derives render-ready structures from favorites data: the
// paginated per-conversation list, message previews with deleted-message
// detection, and the grouped-by-owner overview. Everything here is a pure
// function over store output; transient UI state (current page, targeted
// conversation) belongs to the caller.
package view

import (
	"sort"

	"github.com/yuncengfeihou/favmark/internal/favorites"
	"github.com/yuncengfeihou/favmark/internal/host"
)

// DefaultPageSize matches the original ten-items-per-page popup.
const DefaultPageSize = 10

const previewRunes = 40

// Placeholder texts shown when a message preview cannot be resolved.
const (
	DeletedPlaceholder    = "[Message deleted]"
	SwitchChatPlaceholder = "[Preview requires switching to the corresponding chat]"
)

// Page is one slice of a conversation's favorites, sorted by timestamp.
type Page struct {
	Items      []favorites.FavoriteItem
	TotalPages int
}

// Paginate sorts items by timestamp ascending and returns the requested
// page. The caller is responsible for clamping page to [1, TotalPages];
// out-of-range pages simply yield an empty item list.
func Paginate(items []favorites.FavoriteItem, pageSize, page int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	sorted := append([]favorites.FavoriteItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	totalPages := (len(sorted) + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start < 0 || start >= len(sorted) {
		return Page{TotalPages: totalPages}
	}
	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return Page{Items: sorted[start:end], TotalPages: totalPages}
}

// Preview is the display text for a favorite's source message.
type Preview struct {
	Text    string
	Deleted bool
}

// ResolvePreview decides what to show for a favorite given the live chat.
// When the favorite belongs to a conversation other than the active one the
// message's fate is unknown, so it is not reported as deleted.
func ResolvePreview(item favorites.FavoriteItem, liveChat []host.Message, activeID, targetID string) Preview {
	if targetID != activeID {
		return Preview{Text: SwitchChatPlaceholder}
	}
	for _, msg := range liveChat {
		if msg.ID == item.MessageID {
			return Preview{Text: truncate(msg.Text, previewRunes)}
		}
	}
	return Preview{Text: DeletedPlaceholder, Deleted: true}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// ChatRef points at one conversation inside an owner group.
type ChatRef struct {
	ConversationID string `json:"conversationId"`
	Name           string `json:"name"`
	Count          int    `json:"count"`
}

// OwnerGroup collects the conversations that share one partner.
type OwnerGroup struct {
	Type    favorites.ConversationType `json:"type"`
	OwnerID string                     `json:"ownerId"`
	Name    string                     `json:"name"`
	Chats   []ChatRef                  `json:"chats"`
}

// GroupByOwner builds the cross-conversation overview: private partners
// first, then groups. Conversation ids are scanned in sorted order, so both
// group order (first-seen) and the chats inside each group are
// deterministic.
func GroupByOwner(all map[string]favorites.ConversationFavorites) []OwnerGroup {
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type ownerKey struct {
		typ     favorites.ConversationType
		ownerID string
	}

	index := make(map[ownerKey]int)
	var groups []OwnerGroup
	for _, id := range ids {
		chat := all[id]
		key := ownerKey{typ: chat.Type, ownerID: chat.OwnerID()}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, OwnerGroup{
				Type:    chat.Type,
				OwnerID: chat.OwnerID(),
				Name:    chat.Name,
			})
		}
		groups[i].Chats = append(groups[i].Chats, ChatRef{
			ConversationID: id,
			Name:           chat.Name,
			Count:          chat.Count,
		})
	}

	ordered := make([]OwnerGroup, 0, len(groups))
	for _, g := range groups {
		if g.Type == favorites.TypePrivate {
			ordered = append(ordered, g)
		}
	}
	for _, g := range groups {
		if g.Type != favorites.TypePrivate {
			ordered = append(ordered, g)
		}
	}
	return ordered
}
