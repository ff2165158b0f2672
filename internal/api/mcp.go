package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yuncengfeihou/favmark/internal/favorites"
	"github.com/yuncengfeihou/favmark/internal/host"
	"github.com/yuncengfeihou/favmark/internal/view"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *favorites.Store
	Host     host.Source
	PageSize int
}

func (d MCPDeps) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return view.DefaultPageSize
}

// NewMCPServer creates an MCP server exposing the favorites tools, so an
// assistant can flag and annotate messages the same way the frontend does.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"favmark",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("favmark — favorites for chat messages: flag, annotate, browse, and prune."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("favorite_message",
			mcp.WithDescription("Mark a chat message as a favorite."),
			mcp.WithString("message_id", mcp.Description("Id of the message to favorite"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation the message belongs to (default: the active one)")),
		),
		mcpFavoriteMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("unfavorite_message",
			mcp.WithDescription("Remove the favorite referencing a message."),
			mcp.WithString("message_id", mcp.Description("Id of the message to unfavorite"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation the message belongs to (default: the active one)")),
		),
		mcpUnfavoriteMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_favorite",
			mcp.WithDescription("Delete a favorite by its stable favorite id."),
			mcp.WithString("favorite_id", mcp.Description("Id of the favorite to delete"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation holding the favorite"), mcp.Required()),
		),
		mcpRemoveFavorite(deps),
	)

	s.AddTool(
		mcp.NewTool("set_favorite_note",
			mcp.WithDescription("Attach a free-text note to a favorite (empty note clears it)."),
			mcp.WithString("favorite_id", mcp.Description("Id of the favorite"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation holding the favorite"), mcp.Required()),
			mcp.WithString("note", mcp.Description("Note text")),
		),
		mcpSetFavoriteNote(deps),
	)

	s.AddTool(
		mcp.NewTool("list_favorites",
			mcp.WithDescription("List favorites in a conversation, paginated and sorted oldest first."),
			mcp.WithString("conversation_id", mcp.Description("Conversation to list (default: the active one)")),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
		),
		mcpListFavorites(deps),
	)

	s.AddTool(
		mcp.NewTool("prune_favorites",
			mcp.WithDescription("Remove favorites whose source message no longer exists in the conversation."),
			mcp.WithString("conversation_id", mcp.Description("Conversation to prune (default: the active one)")),
		),
		mcpPruneFavorites(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"favorites://overview",
			"Favorites Overview",
			mcp.WithResourceDescription("All favorited conversations grouped by character/group"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceOverview(deps),
	)

	return s
}

// resolveConversation falls back to the host's active conversation when the
// tool call does not name one.
func resolveConversation(deps MCPDeps, req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("conversation_id", ""); id != "" {
		return id, nil
	}
	id, err := deps.Host.CurrentConversationID()
	if err != nil {
		return "", fmt.Errorf("resolving active conversation: %w", err)
	}
	if id == "" {
		return "", errors.New("no active conversation; pass conversation_id")
	}
	return id, nil
}

func mcpFavoriteMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		messageID, err := req.RequireString("message_id")
		if err != nil {
			return mcpError("message_id is required"), nil
		}
		conversationID, err := resolveConversation(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		if chat := deps.Store.Conversation(conversationID); chat != nil {
			for _, it := range chat.Items {
				if it.MessageID == messageID {
					return mcpError(fmt.Sprintf("message %s is already favorited", messageID)), nil
				}
			}
		}

		msgs, err := deps.Host.Messages(conversationID)
		if err != nil {
			return mcpError(hostUnavailableMsg), nil
		}
		var msg *host.Message
		for i := range msgs {
			if msgs[i].ID == messageID {
				msg = &msgs[i]
				break
			}
		}
		if msg == nil {
			return mcpError(fmt.Sprintf("message %s not found in conversation %s", messageID, conversationID)), nil
		}

		meta, err := deps.Host.Meta(conversationID)
		if err != nil {
			return mcpError(fmt.Sprintf("reading conversation metadata: %v", err)), nil
		}

		item, err := deps.Store.Add(conversationID, favorites.Message{
			ID:     msg.ID,
			Name:   msg.Name,
			IsUser: msg.IsUser,
			SentAt: msg.SentAt,
		}, meta)
		if err != nil {
			return mcpError(fmt.Sprintf("adding favorite: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Favorited message %s as %s", messageID, item.ID)), nil
	}
}

func mcpUnfavoriteMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		messageID, err := req.RequireString("message_id")
		if err != nil {
			return mcpError("message_id is required"), nil
		}
		conversationID, err := resolveConversation(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		if !deps.Store.RemoveByMessage(conversationID, messageID) {
			return mcpText(fmt.Sprintf("Message %s was not favorited", messageID)), nil
		}
		return mcpText(fmt.Sprintf("Unfavorited message %s", messageID)), nil
	}
}

func mcpRemoveFavorite(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		favoriteID, err := req.RequireString("favorite_id")
		if err != nil {
			return mcpError("favorite_id is required"), nil
		}
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}

		messageID, ok := deps.Store.RemoveByID(conversationID, favoriteID)
		if !ok {
			return mcpError(fmt.Sprintf("favorite %s not found in conversation %s", favoriteID, conversationID)), nil
		}
		return mcpText(fmt.Sprintf("Removed favorite %s (message %s)", favoriteID, messageID)), nil
	}
}

func mcpSetFavoriteNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		favoriteID, err := req.RequireString("favorite_id")
		if err != nil {
			return mcpError("favorite_id is required"), nil
		}
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}
		note := req.GetString("note", "")

		if err := deps.Store.SetNote(conversationID, favoriteID, note); err != nil {
			if errors.Is(err, favorites.ErrNotFound) {
				return mcpError(fmt.Sprintf("favorite %s not found in conversation %s", favoriteID, conversationID)), nil
			}
			return mcpError(fmt.Sprintf("setting note: %v", err)), nil
		}
		if note == "" {
			return mcpText(fmt.Sprintf("Cleared note on favorite %s", favoriteID)), nil
		}
		return mcpText(fmt.Sprintf("Set note on favorite %s", favoriteID)), nil
	}
}

func mcpListFavorites(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		conversationID, err := resolveConversation(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		page := req.GetInt("page", 1)
		if page < 1 {
			page = 1
		}

		chat := deps.Store.Conversation(conversationID)
		if chat == nil {
			return mcpText("[]"), nil
		}

		paged := view.Paginate(chat.Items, deps.pageSize(), page)

		activeID, err := deps.Host.CurrentConversationID()
		if err != nil {
			activeID = ""
		}
		var live []host.Message
		if activeID == conversationID {
			if live, err = deps.Host.Messages(conversationID); err != nil {
				live = nil
			}
		}

		results := make([]FavoriteView, 0, len(paged.Items))
		for _, it := range paged.Items {
			p := view.ResolvePreview(it, live, activeID, conversationID)
			results = append(results, FavoriteView{FavoriteItem: it, Preview: p.Text, Deleted: p.Deleted})
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal favorites: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPruneFavorites(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		conversationID, err := resolveConversation(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		msgs, err := deps.Host.Messages(conversationID)
		if err != nil {
			return mcpError(hostUnavailableMsg), nil
		}

		live := make(map[string]struct{}, len(msgs))
		for _, m := range msgs {
			live[m.ID] = struct{}{}
		}

		removed := deps.Store.PruneInvalid(conversationID, live)
		if removed == 0 {
			return mcpText("No invalid favorites found"), nil
		}
		return mcpText(fmt.Sprintf("Removed %d invalid favorites", removed)), nil
	}
}

func mcpResourceOverview(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		groups := view.GroupByOwner(deps.Store.All())
		if groups == nil {
			groups = []view.OwnerGroup{}
		}
		b, err := json.Marshal(groups)
		if err != nil {
			return nil, fmt.Errorf("marshalling overview: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
