package view

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/yuncengfeihou/favmark/internal/favorites"
	"github.com/yuncengfeihou/favmark/internal/host"
)

func itemsWithTimestamps(timestamps ...int64) []favorites.FavoriteItem {
	items := make([]favorites.FavoriteItem, len(timestamps))
	for i, ts := range timestamps {
		items[i] = favorites.FavoriteItem{
			ID:        fmt.Sprintf("f%d", i),
			MessageID: fmt.Sprintf("m%d", i),
			Timestamp: ts,
		}
	}
	return items
}

func TestPaginateSortsByTimestamp(t *testing.T) {
	items := itemsWithTimestamps(2000, 1000)

	page := Paginate(items, 10, 1)
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
	if len(page.Items) != 2 || page.Items[0].Timestamp != 1000 || page.Items[1].Timestamp != 2000 {
		t.Errorf("items not sorted ascending: %+v", page.Items)
	}
}

func TestPaginateCoversAllItemsExactlyOnce(t *testing.T) {
	const n, pageSize = 23, 5
	items := make([]favorites.FavoriteItem, 0, n)
	for i := 0; i < n; i++ {
		// Reverse order so sorting actually has to work.
		items = append(items, favorites.FavoriteItem{ID: fmt.Sprintf("f%d", i), Timestamp: int64(n - i)})
	}

	wantPages := (n + pageSize - 1) / pageSize
	var concat []favorites.FavoriteItem
	for p := 1; p <= wantPages; p++ {
		page := Paginate(items, pageSize, p)
		if page.TotalPages != wantPages {
			t.Fatalf("page %d: TotalPages = %d, want %d", p, page.TotalPages, wantPages)
		}
		concat = append(concat, page.Items...)
	}

	if len(concat) != n {
		t.Fatalf("concatenated pages hold %d items, want %d", len(concat), n)
	}
	for i := 1; i < len(concat); i++ {
		if concat[i].Timestamp < concat[i-1].Timestamp {
			t.Fatalf("concatenated pages not sorted at index %d: %+v", i, concat)
		}
	}
	seen := make(map[string]bool, n)
	for _, it := range concat {
		if seen[it.ID] {
			t.Fatalf("item %s appears more than once", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate(nil, 10, 1)
	if page.TotalPages != 0 || len(page.Items) != 0 {
		t.Errorf("Paginate(nil) = %+v, want empty", page)
	}
}

func TestPaginateOutOfRangePage(t *testing.T) {
	page := Paginate(itemsWithTimestamps(1, 2, 3), 10, 5)
	if len(page.Items) != 0 {
		t.Errorf("out-of-range page returned items: %+v", page.Items)
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
}

func TestResolvePreviewOtherConversation(t *testing.T) {
	item := favorites.FavoriteItem{MessageID: "m1"}
	live := []host.Message{{ID: "m1", Text: "present"}}

	p := ResolvePreview(item, live, "active-chat", "other-chat")
	if p.Text != SwitchChatPlaceholder {
		t.Errorf("Text = %q, want switch placeholder", p.Text)
	}
	if p.Deleted {
		t.Error("preview for an unloaded conversation must not assert deletion")
	}
}

func TestResolvePreviewLiveMessage(t *testing.T) {
	item := favorites.FavoriteItem{MessageID: "m1"}

	cases := []struct {
		name string
		text string
		want string
	}{
		{"short message kept whole", "hello", "hello"},
		{"exactly forty runes kept whole", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"long message truncated", strings.Repeat("a", 41), strings.Repeat("a", 40) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			live := []host.Message{{ID: "m1", Text: tc.text}}
			p := ResolvePreview(item, live, "c1", "c1")
			if p.Deleted {
				t.Error("live message reported as deleted")
			}
			if p.Text != tc.want {
				t.Errorf("Text = %q, want %q", p.Text, tc.want)
			}
		})
	}
}

func TestResolvePreviewDeleted(t *testing.T) {
	item := favorites.FavoriteItem{MessageID: "m1"}
	live := []host.Message{{ID: "m2", Text: "different"}}

	p := ResolvePreview(item, live, "c1", "c1")
	if !p.Deleted || p.Text != DeletedPlaceholder {
		t.Errorf("preview = %+v, want deleted placeholder", p)
	}

	// nil live chat in the active conversation also counts as deleted.
	p = ResolvePreview(item, nil, "c1", "c1")
	if !p.Deleted {
		t.Errorf("nil live chat: preview = %+v, want deleted", p)
	}
}

func TestGroupByOwnerOrdering(t *testing.T) {
	all := map[string]favorites.ConversationFavorites{
		"chat-z": {Type: favorites.TypeGroup, GroupID: "grp1", Name: "The Council", Count: 2},
		"chat-a": {Type: favorites.TypePrivate, CharacterID: "char1", Name: "Bob", Count: 1},
		"chat-b": {Type: favorites.TypePrivate, CharacterID: "char2", Name: "Eve", Count: 3},
		"chat-c": {Type: favorites.TypePrivate, CharacterID: "char1", Name: "Bob", Count: 5},
	}

	groups := GroupByOwner(all)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	// Private partners first, then groups.
	if groups[0].Type != favorites.TypePrivate || groups[1].Type != favorites.TypePrivate {
		t.Errorf("private groups not emitted first: %+v", groups)
	}
	if groups[2].Type != favorites.TypeGroup || groups[2].OwnerID != "grp1" {
		t.Errorf("group-type partner not last: %+v", groups[2])
	}

	// char1 owns two conversations, merged into one group in id order.
	if groups[0].OwnerID != "char1" {
		t.Fatalf("first group owner = %q, want char1", groups[0].OwnerID)
	}
	wantChats := []ChatRef{
		{ConversationID: "chat-a", Name: "Bob", Count: 1},
		{ConversationID: "chat-c", Name: "Bob", Count: 5},
	}
	if !reflect.DeepEqual(groups[0].Chats, wantChats) {
		t.Errorf("char1 chats = %+v, want %+v", groups[0].Chats, wantChats)
	}
}

func TestGroupByOwnerEmpty(t *testing.T) {
	if groups := GroupByOwner(nil); len(groups) != 0 {
		t.Errorf("GroupByOwner(nil) = %+v, want empty", groups)
	}
}

func TestGroupByOwnerDeterministic(t *testing.T) {
	all := map[string]favorites.ConversationFavorites{
		"c1": {Type: favorites.TypePrivate, CharacterID: "x", Name: "X"},
		"c2": {Type: favorites.TypePrivate, CharacterID: "y", Name: "Y"},
		"c3": {Type: favorites.TypeGroup, GroupID: "g", Name: "G"},
	}

	first := GroupByOwner(all)
	for i := 0; i < 10; i++ {
		if got := GroupByOwner(all); !reflect.DeepEqual(got, first) {
			t.Fatalf("ordering not deterministic: %+v vs %+v", got, first)
		}
	}
}
