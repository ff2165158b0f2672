package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yuncengfeihou/favmark/internal/api"
	"github.com/yuncengfeihou/favmark/internal/config"
	"github.com/yuncengfeihou/favmark/internal/favorites"
	"github.com/yuncengfeihou/favmark/internal/host"
	"github.com/yuncengfeihou/favmark/internal/settings"
)

// saveDebounce matches the frontend's settings-save debounce.
const saveDebounce = time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the favmark server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running favmark server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show favmark system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "favmark.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "favmark version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("favmark is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("favmark is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the store with debounced persistence: mutations request a save,
	// the saver coalesces bursts into one write.
	var saver *settings.Saver
	store := favorites.NewStore(func() { saver.Request() })
	favoritesPath := settings.Path(cfg.Storage.DataDir)
	saver = settings.NewSaver(saveDebounce, func() error {
		data, err := store.Snapshot()
		if err != nil {
			return err
		}
		return settings.Save(favoritesPath, data)
	})

	// Restore persisted favorites.
	if data, err := settings.Load(favoritesPath); err != nil {
		return fmt.Errorf("loading favorites: %w", err)
	} else if data != nil {
		if err := store.Restore(data); err != nil {
			return fmt.Errorf("restoring favorites: %w", err)
		}
	}
	slog.Info("favorites loaded", "path", favoritesPath)

	// Open the chat frontend's database. A missing or unreadable database
	// is not fatal: favorites still work, previews and validation degrade.
	var chatSource host.Source
	if cfg.Host.DBPath != "" {
		chatDB, err := host.OpenChatDB(cfg.Host.DBPath)
		if err != nil {
			return fmt.Errorf("opening chat database: %w", err)
		}
		defer chatDB.Close()
		chatSource = chatDB
		slog.Info("chat database configured", "path", cfg.Host.DBPath)
	} else {
		chatSource = host.Unconfigured{}
		slog.Warn("no chat database configured; set host.db_path to enable previews")
	}

	// Build HTTP handler and server.
	handler := api.NewHandler(api.AppDeps{
		Store:    store,
		Host:     chatSource,
		Token:    apiToken,
		PageSize: cfg.View.PageSize,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build MCP server (stdio transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:    store,
		Host:     chatSource,
		PageSize: cfg.View.PageSize,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "favmark listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	slog.Info("MCP server started (stdio transport)")

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	// Write out any pending favorites before exiting.
	if err := saver.Flush(); err != nil {
		slog.Error("flushing favorites at shutdown", "error", err)
	}

	return runErr
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("favmark is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop favmark (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to favmark (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the chat database.
	if cfg.Host.DBPath == "" {
		printStatus("Chat DB", "not configured")
	} else if _, err := os.Stat(cfg.Host.DBPath); err != nil {
		printStatus("Chat DB", "missing (%s)", cfg.Host.DBPath)
	} else {
		printStatus("Chat DB", "%s", cfg.Host.DBPath)
	}

	// Show favorites counts if the server is running.
	if running {
		if apiToken, tokenErr := config.GetAPIToken(); tokenErr == nil {
			if ovResp, err := apiGet(client, serverURL+"/favorites/overview", apiToken); err == nil {
				var groups []struct {
					Chats []struct {
						Count int `json:"count"`
					} `json:"chats"`
				}
				if decodeJSON(ovResp, &groups) == nil {
					chats, total := 0, 0
					for _, g := range groups {
						chats += len(g.Chats)
						for _, c := range g.Chats {
							total += c.Count
						}
					}
					printStatus("Favorites", "%d across %d conversations", total, chats)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
