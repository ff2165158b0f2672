package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "favmark",
	Short: "Favorites for chat messages",
	Long: `favmark is a local sidecar that owns message favorites for a chat
frontend: flag messages, annotate them, browse them per conversation or
across all chats, and prune favorites whose messages were deleted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(faveCmd)
	rootCmd.AddCommand(unfaveCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(configCmd)
}
