// ABOUTME: Entry point for the sitechat terminal chat client.
// ABOUTME: Interactive loop plus maintenance subcommands; all core logic lives in internal/.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/sitebuilder/sitechat/internal/chat"
	"github.com/sitebuilder/sitechat/internal/config"
	"github.com/sitebuilder/sitechat/internal/session"
	"github.com/sitebuilder/sitechat/internal/store"
	"github.com/sitebuilder/sitechat/internal/syncer"
	"github.com/sitebuilder/sitechat/internal/webhook"
)

// version is set at build time via -ldflags.
var version = "dev"

const banner = `
     _ _            _           _
 ___(_) |_ ___  ___| |__   __ _| |_
/ __| | __/ _ \/ __| '_ \ / _' | __|
\__ \ | ||  __/ (__| | | | (_| | |_
|___/_|\__\___|\___|_| |_|\__,_|\__|
`

// getConfigPath returns the path to the sitechat config file.
// Priority: SITECHAT_CONFIG env var > XDG_CONFIG_HOME/sitechat/sitechat.yaml > ~/.config/sitechat/sitechat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SITECHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "sitechat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sitechat", "sitechat.yaml")
}

// getDataPath returns the path to the sitechat data directory.
// Priority: XDG_DATA_HOME/sitechat > ~/.local/share/sitechat
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "sitechat")
}

func main() {
	// Optional .env support; a missing file is fine.
	_ = godotenv.Load()

	command := "chat"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "chat":
		err = runChat(ctx)
	case "conversations":
		err = runConversations(ctx)
	case "init":
		err = runInit()
	case "reset-session":
		err = runResetSession(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: sitechat [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat            Start the interactive chat (default)")
	fmt.Println("  conversations   List stored conversations")
	fmt.Println("  init            Create a starter config file")
	fmt.Println("  reset-session   Generate a fresh webhook session id")
	fmt.Println("  version         Print the version")
}

// loadConfig reads the config file when present and falls back to
// environment variables otherwise.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.FromEnv()
}

// app bundles the wired core components.
type app struct {
	cfg        *config.Config
	kv         *store.KV
	sessions   *session.Manager
	engine     *syncer.Engine
	events     *chat.Broadcaster
	controller *chat.Controller
}

// buildApp wires the core from configuration: key/value storage, identity,
// both store variants, sync engine, broadcaster, and controller.
func buildApp(cfg *config.Config) (*app, error) {
	logger := setupLogger(cfg.Logging)

	storagePath := cfg.Storage.Path
	if storagePath == "" {
		storagePath = filepath.Join(getDataPath(), "sitechat.db")
	}

	kv, err := store.OpenKV(storagePath)
	if err != nil {
		return nil, fmt.Errorf("opening local storage: %w", err)
	}

	sessions := session.NewManager(kv, logger)
	local := store.NewLocalStore(kv, logger)

	var remote store.Store
	if cfg.Backend.Enabled() {
		remote = store.NewRemoteStore(cfg.Backend.URL, cfg.Backend.Key, sessions.UserID(), logger)
	}

	engine := syncer.New(remote, local, logger)
	events := chat.NewBroadcaster(logger)
	delivery := webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Token, logger)
	controller := chat.NewController(sessions, delivery, engine, events, logger)

	engine.OnStatusChange(func(s syncer.Status) {
		events.Publish(&chat.Event{Type: chat.EventSyncStatus, Status: s})
	})

	return &app{
		cfg:        cfg,
		kv:         kv,
		sessions:   sessions,
		engine:     engine,
		events:     events,
		controller: controller,
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	a.kv.Close()
}

func runChat(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig()
	if err != nil {
		color.Red("Configuration error: %v", err)
		fmt.Println("Run 'sitechat init' to create a config file, or set SITECHAT_WEBHOOK_URL.")
		os.Exit(1)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	green.Print("    ▶ ")
	fmt.Printf("Webhook:  %s\n", cfg.Webhook.URL)
	green.Print("    ▶ ")
	if cfg.Backend.Enabled() {
		fmt.Printf("Backend:  %s\n", cfg.Backend.URL)
	} else {
		fmt.Println("Backend:  local only")
	}
	green.Print("    ▶ ")
	fmt.Printf("Session:  %s...\n", a.sessions.SessionID()[:8])
	fmt.Println()
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	ui := newUI(a.cfg.Chat.Title)
	eventCh, _ := a.events.Subscribe(ctx)
	go ui.render(eventCh)

	a.controller.Start(ctx)
	printHistory(a.controller.Messages(), a.cfg.Chat.Title)

	return runLoop(ctx, a, ui)
}

// runLoop reads stdin lines and dispatches commands or messages.
func runLoop(ctx context.Context, a *app, ui *ui) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				errCh <- scanner.Err()
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case err := <-errCh:
			return err
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.handleCommand(ctx, input, ui); quit {
				fmt.Println("Goodbye!")
				return nil
			}
			continue
		}

		a.controller.Submit(ctx, input)
	}
}

// handleCommand dispatches a slash command. Returns true to quit.
func (a *app) handleCommand(ctx context.Context, input string, ui *ui) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/help":
		printHelp()

	case "/new":
		a.controller.NewConversation(ctx)
		printHistory(a.controller.Messages(), a.cfg.Chat.Title)

	case "/list":
		printConversations(a.controller.Conversations(), a.controller.CurrentID())

	case "/use":
		if len(args) != 1 {
			fmt.Println("Usage: /use <number from /list>")
			break
		}
		conv := a.conversationAt(args[0])
		if conv == nil {
			fmt.Println("No such conversation")
			break
		}
		a.controller.SwitchConversation(ctx, conv.ID)
		printHistory(a.controller.Messages(), a.cfg.Chat.Title)

	case "/delete":
		id := a.controller.CurrentID()
		if len(args) == 1 {
			conv := a.conversationAt(args[0])
			if conv == nil {
				fmt.Println("No such conversation")
				break
			}
			id = conv.ID
		}
		a.controller.DeleteConversation(ctx, id)
		fmt.Println("Conversation deleted")

	case "/retry":
		a.controller.RetryLast(ctx)

	case "/f":
		if len(args) != 1 {
			fmt.Println("Usage: /f <suggestion number>")
			break
		}
		text := ui.followUp(args[0])
		if text == "" {
			fmt.Println("No such suggestion")
			break
		}
		fmt.Printf("> %s\n", text)
		a.controller.Submit(ctx, text)

	case "/status":
		fmt.Printf("Sync: %s\n", a.engine.Status())

	case "/session":
		fmt.Printf("Session: %s\n", a.sessions.SessionID())

	default:
		fmt.Printf("Unknown command: %s (try /help)\n", cmd)
	}
	return false
}

// conversationAt resolves a 1-based /list index.
func (a *app) conversationAt(arg string) *store.Conversation {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil
	}
	convs := a.controller.Conversations()
	if n < 1 || n > len(convs) {
		return nil
	}
	return convs[n-1]
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /new           Start a new conversation")
	fmt.Println("  /list          List conversations")
	fmt.Println("  /use <n>       Switch to conversation n")
	fmt.Println("  /delete [n]    Delete conversation n (default: current)")
	fmt.Println("  /retry         Retry the last message")
	fmt.Println("  /f <n>         Send suggested follow-up n")
	fmt.Println("  /status        Show sync status")
	fmt.Println("  /session       Show the webhook session id")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit")
}

func printConversations(convs []*store.Conversation, currentID string) {
	if len(convs) == 0 {
		fmt.Println("No conversations")
		return
	}
	for i, conv := range convs {
		marker := " "
		if conv.ID == currentID {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s\n", marker, i+1, conv.Title)
		color.New(color.FgHiBlack).Printf("       %s · %s\n", conv.LastMessage, conv.UpdatedAt.Local().Format("Jan 2 15:04"))
	}
}

func printHistory(msgs []*store.Message, title string) {
	fmt.Println(strings.Repeat("-", 60))
	for _, msg := range msgs {
		if msg.IsUser {
			fmt.Printf("> %s\n", msg.Content)
		} else {
			color.New(color.FgGreen).Printf("%s> ", title)
			fmt.Println(msg.Content)
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

func runConversations(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.controller.Start(ctx)
	printConversations(a.controller.Conversations(), a.controller.CurrentID())
	return nil
}

const starterConfig = `# sitechat configuration
webhook:
  url: ${SITECHAT_WEBHOOK_URL}
  token: ${SITECHAT_WEBHOOK_TOKEN}

# Optional remote persistence backend. Leave empty for local-only mode.
backend:
  url: ${SITECHAT_BACKEND_URL}
  key: ${SITECHAT_BACKEND_KEY}

chat:
  title: SiteBuilder

logging:
  level: info
  format: text
`

func runInit() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func runResetSession(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("New session: %s\n", a.sessions.ClearSession())
	return nil
}
