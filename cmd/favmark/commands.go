package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuncengfeihou/favmark/internal/config"
)

// favoriteRow mirrors the server's per-item list payload.
type favoriteRow struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
	Note      string `json:"note"`
	Preview   string `json:"preview"`
	Deleted   bool   `json:"deleted"`
}

type conversationPage struct {
	ConversationID string        `json:"conversationId"`
	Name           string        `json:"name"`
	Count          int           `json:"count"`
	Page           int           `json:"page"`
	TotalPages     int           `json:"totalPages"`
	Items          []favoriteRow `json:"items"`
}

// confirm prompts on stderr and reads a y/N answer from stdin. Anything
// but an explicit yes cancels.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list <conversation-id>",
	Short: "List favorites in a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites?page=%d", url.PathEscape(args[0]), page)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result conversationPage
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Count == 0 {
			fmt.Println("No favorites in this conversation.")
			return nil
		}

		title := result.ConversationID
		if result.Name != "" {
			title = fmt.Sprintf("%s (%s)", result.Name, result.ConversationID)
		}
		fmt.Printf("%s — %d favorites, page %d/%d\n",
			colorize(colorBold, title), result.Count, result.Page, result.TotalPages)

		for _, item := range result.Items {
			marker := " "
			if item.Deleted {
				marker = colorize(colorRed, "!")
			}
			fmt.Printf("%s %s  %s  %s\n",
				marker,
				colorize(colorCyan, shortID(item.ID)),
				item.Sender,
				item.Preview,
			)
			if item.Note != "" {
				fmt.Printf("      %s %s\n", colorize(colorYellow, "note:"), item.Note)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("page", 1, "page number")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- fave ---

var faveCmd = &cobra.Command{
	Use:     "fave <conversation-id> <message-id>",
	Aliases: []string{"add"},
	Short:   "Mark a message as a favorite",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites", url.PathEscape(args[0]))
		resp, err := client.post(cmd.Context(), path, map[string]string{"messageId": args[1]})
		if err != nil {
			return err
		}

		var item favoriteRow
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		printSuccess("Favorited message %s as %s", item.MessageID, item.ID)
		return nil
	},
}

// --- unfave ---

var unfaveCmd = &cobra.Command{
	Use:   "unfave <conversation-id> <message-id>",
	Short: "Remove the favorite referencing a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites/by-message/%s",
			url.PathEscape(args[0]), url.PathEscape(args[1]))
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result["removed"] {
			printWarning("Message %s was not favorited", args[1])
			return nil
		}
		printSuccess("Unfavorited message %s", args[1])
		return nil
	},
}

// --- remove ---

var removeCmd = &cobra.Command{
	Use:   "remove <conversation-id> <favorite-id>",
	Short: "Delete a favorite by its id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(fmt.Sprintf("Delete favorite %s?", args[1])) {
			printWarning("Cancelled")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites/%s",
			url.PathEscape(args[0]), url.PathEscape(args[1]))
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed favorite %s (message %s)", args[1], result["messageId"])
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("yes", false, "skip confirmation")
}

// --- note ---

var noteCmd = &cobra.Command{
	Use:   "note <conversation-id> <favorite-id> [text]",
	Short: "Set or clear a favorite's note",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		note := ""
		if len(args) == 3 {
			note = args[2]
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites/%s",
			url.PathEscape(args[0]), url.PathEscape(args[1]))
		resp, err := client.patch(cmd.Context(), path, map[string]string{"note": note})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result["note"] == "" {
			printSuccess("Cleared note on favorite %s", args[1])
		} else {
			printSuccess("Set note on favorite %s", args[1])
		}
		return nil
	},
}

// --- prune ---

var pruneCmd = &cobra.Command{
	Use:   "prune <conversation-id>",
	Short: "Remove favorites whose messages no longer exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(fmt.Sprintf("Prune invalid favorites in %s?", args[0])) {
			printWarning("Cancelled")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/conversations/%s/favorites/prune", url.PathEscape(args[0]))
		resp, err := client.post(cmd.Context(), path, nil)
		if err != nil {
			return err
		}

		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result["removed"] == 0 {
			fmt.Println("No invalid favorites found.")
			return nil
		}
		printSuccess("Removed %d invalid favorites", result["removed"])
		return nil
	},
}

func init() {
	pruneCmd.Flags().Bool("yes", false, "skip confirmation")
}

// --- overview ---

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show all favorited conversations grouped by character/group",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/favorites/overview")
		if err != nil {
			return err
		}

		var groups []struct {
			Type    string `json:"type"`
			OwnerID string `json:"ownerId"`
			Name    string `json:"name"`
			Chats   []struct {
				ConversationID string `json:"conversationId"`
				Name           string `json:"name"`
				Count          int    `json:"count"`
			} `json:"chats"`
		}
		if err := decodeJSON(resp, &groups); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		}

		if len(groups) == 0 {
			fmt.Println("No favorites yet.")
			return nil
		}

		for _, g := range groups {
			label := "group"
			if g.Type == "private" {
				label = "character"
			}
			fmt.Printf("%s (%s)\n", colorize(colorBold, g.Name), label)
			for _, c := range g.Chats {
				fmt.Printf("  %s  %d favorites\n", colorize(colorCyan, c.ConversationID), c.Count)
			}
		}
		return nil
	},
}

func init() {
	overviewCmd.Flags().Bool("json", false, "output raw JSON")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
