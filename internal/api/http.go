// Package api exposes the favorites store to the chat frontend over a
// loopback HTTP API and to assistants over MCP. Handlers mediate between
// the store, the presenter, and the host adapter; all favorites logic
// lives below this layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yuncengfeihou/favmark/internal/favorites"
	"github.com/yuncengfeihou/favmark/internal/host"
	"github.com/yuncengfeihou/favmark/internal/view"
)

const maxBodySize = 1 << 20 // 1MB

// hostUnavailableMsg mirrors the alert the original favorites popup showed
// when the live chat could not be read.
const hostUnavailableMsg = "Cannot validate messages. Try refreshing."

// AppDeps holds dependencies for the HTTP handler.
type AppDeps struct {
	Store    *favorites.Store
	Host     host.Source
	Token    string
	PageSize int // favorites per page; 0 means view.DefaultPageSize
}

func (d AppDeps) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return view.DefaultPageSize
}

// NewHandler builds the favorites router. Everything except /health sits
// behind bearer auth.
func NewHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/conversations/{conversationID}/favorites", handleListFavorites(deps))
		r.Post("/conversations/{conversationID}/favorites", handleAddFavorite(deps))
		r.Delete("/conversations/{conversationID}/favorites/by-message/{messageID}", handleRemoveByMessage(deps))
		r.Delete("/conversations/{conversationID}/favorites/{favoriteID}", handleRemoveByID(deps))
		r.Patch("/conversations/{conversationID}/favorites/{favoriteID}", handleSetNote(deps))
		r.Post("/conversations/{conversationID}/favorites/prune", handlePrune(deps))
		r.Get("/favorites/overview", handleOverview(deps))
	})

	return r
}

// FavoriteView is a favorite plus its resolved message preview.
type FavoriteView struct {
	favorites.FavoriteItem
	Preview string `json:"preview"`
	Deleted bool   `json:"deleted"`
}

// ConversationPage is the paginated view-model for one conversation.
type ConversationPage struct {
	ConversationID string         `json:"conversationId"`
	Name           string         `json:"name,omitempty"`
	Count          int            `json:"count"`
	Page           int            `json:"page"`
	TotalPages     int            `json:"totalPages"`
	Items          []FavoriteView `json:"items"`
}

func handleListFavorites(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")

		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid page %q", raw)
				return
			}
			page = p
		}

		resp := ConversationPage{
			ConversationID: conversationID,
			Page:           1,
			Items:          []FavoriteView{},
		}

		chat := deps.Store.Conversation(conversationID)
		if chat == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		pageSize := deps.pageSize()
		totalPages := (chat.Count + pageSize - 1) / pageSize
		if page < 1 {
			page = 1
		}
		if page > totalPages {
			page = totalPages
		}

		// Live messages only matter when the targeted conversation is the
		// one the frontend has loaded; otherwise previews say to switch.
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

		paged := view.Paginate(chat.Items, pageSize, page)
		items := make([]FavoriteView, 0, len(paged.Items))
		for _, it := range paged.Items {
			p := view.ResolvePreview(it, live, activeID, conversationID)
			items = append(items, FavoriteView{FavoriteItem: it, Preview: p.Text, Deleted: p.Deleted})
		}

		resp.Name = chat.Name
		resp.Count = chat.Count
		resp.Page = page
		resp.TotalPages = paged.TotalPages
		resp.Items = items
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAddFavorite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req struct {
			MessageID string `json:"messageId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.MessageID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "messageId is required")
			return
		}

		// One favorite per live message: the icon toggles, the API rejects.
		if chat := deps.Store.Conversation(conversationID); chat != nil {
			for _, it := range chat.Items {
				if it.MessageID == req.MessageID {
					httpError(w, http.StatusConflict, "conflict_error", "message %s is already favorited", req.MessageID)
					return
				}
			}
		}

		msgs, err := deps.Host.Messages(conversationID)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "host_unavailable", "%s", hostUnavailableMsg)
			return
		}
		var msg *host.Message
		for i := range msgs {
			if msgs[i].ID == req.MessageID {
				msg = &msgs[i]
				break
			}
		}
		if msg == nil {
			httpError(w, http.StatusNotFound, "not_found", "message %s not found in chat", req.MessageID)
			return
		}

		meta, err := deps.Host.Meta(conversationID)
		if err != nil {
			if errors.Is(err, favorites.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "conversation %s not found", conversationID)
				return
			}
			httpError(w, http.StatusServiceUnavailable, "host_unavailable", "%s", hostUnavailableMsg)
			return
		}

		item, err := deps.Store.Add(conversationID, favorites.Message{
			ID:     msg.ID,
			Name:   msg.Name,
			IsUser: msg.IsUser,
			SentAt: msg.SentAt,
		}, meta)
		if err != nil {
			if errors.Is(err, favorites.ErrInvalidInput) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "adding favorite: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

func handleRemoveByMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		messageID := chi.URLParam(r, "messageID")

		removed := deps.Store.RemoveByMessage(conversationID, messageID)
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

func handleRemoveByID(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		favoriteID := chi.URLParam(r, "favoriteID")

		messageID, ok := deps.Store.RemoveByID(conversationID, favoriteID)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "favorite %s not found", favoriteID)
			return
		}
		// The frontend reverts the star icon keyed by this message id.
		writeJSON(w, http.StatusOK, map[string]string{"messageId": messageID})
	}
}

func handleSetNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		favoriteID := chi.URLParam(r, "favoriteID")

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req struct {
			Note string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := deps.Store.SetNote(conversationID, favoriteID, req.Note); err != nil {
			if errors.Is(err, favorites.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "favorite %s not found", favoriteID)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"note": strings.TrimSpace(req.Note)})
	}
}

func handlePrune(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")

		msgs, err := deps.Host.Messages(conversationID)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "host_unavailable", "%s", hostUnavailableMsg)
			return
		}

		live := make(map[string]struct{}, len(msgs))
		for _, m := range msgs {
			live[m.ID] = struct{}{}
		}

		removed := deps.Store.PruneInvalid(conversationID, live)
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

func handleOverview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		groups := view.GroupByOwner(deps.Store.All())
		if groups == nil {
			groups = []view.OwnerGroup{}
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
