package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vibelog/internal/browser"
	"vibelog/internal/bus"
	"vibelog/internal/channel"
	"vibelog/internal/config"
	"vibelog/internal/conversation"
	"vibelog/internal/domain"
	"vibelog/internal/generator"
	"vibelog/internal/memory"
	"vibelog/internal/publisher"
	"vibelog/internal/session"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "vibelog",
		Short: "vibelog: conversational blog drafting and publishing",
		Long:  "vibelog drafts blog posts through conversation, saves them, and cross-posts them to X.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.vibelog/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(logoutCmd())
	root.AddCommand(postCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s (run `vibelog init` first?): %w", cfgPath, err)
	}
	setLogLevel(cfg.General.LogLevel)
	return cfg, nil
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Println("Config created at", cfgPath)
			fmt.Println("Set llm.apiKey, publisher.account, and export VIBELOG_SESSION_SECRET to get started.")
			return nil
		},
	}
}

// app holds the wired-up collaborators shared by the chat and gateway commands.
type app struct {
	cfg      *config.Config
	store    *memory.SQLiteStore
	sessions *publisher.Manager
	remote   *publisher.XWeb
	registry *conversation.Registry
}

func buildApp(cfg *config.Config) (*app, error) {
	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, cfg.Memory.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	sessions, remote, err := buildPublisher(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	gen, err := generator.NewOpenAI(generator.OpenAIConfig{
		APIKey:  apiKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("generator: %w", err)
	}

	registry := conversation.NewRegistry(conversation.RegistryConfig{
		Generator:  gen,
		Posts:      store,
		Publisher:  remote,
		History:    store,
		Logger:     logger,
		ThreadMode: cfg.Publisher.ThreadMode,
	})

	return &app{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		remote:   remote,
		registry: registry,
	}, nil
}

func buildPublisher(cfg *config.Config) (*publisher.Manager, *publisher.XWeb, error) {
	secret := cfg.Session.Secret
	if secret == "" || strings.Contains(secret, "${") {
		return nil, nil, fmt.Errorf("session.secret is not set; export VIBELOG_SESSION_SECRET")
	}
	if cfg.Publisher.Account == "" {
		return nil, nil, fmt.Errorf("publisher.account is not set")
	}

	sessStore, err := session.NewSQLiteStore(cfg.Session.DBPath, secret, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}

	sel, err := publisher.LoadSelectors(cfg.Publisher.SelectorsFile)
	if err != nil {
		return nil, nil, err
	}

	bridge := browser.NewBridge(browser.BridgeConfig{
		ProfileDir: cfg.Publisher.ProfileDir,
		Headless:   cfg.Publisher.Headless,
		Logger:     logger,
	})

	sessions := publisher.NewManager(publisher.ManagerConfig{
		Store:     sessStore,
		Browser:   bridge.NewTab,
		Selectors: sel,
		Logger:    logger,
	})

	remote := publisher.NewXWeb(publisher.XWebConfig{
		Sessions:  sessions,
		Selectors: sel,
		Account:   cfg.Publisher.Account,
		Logger:    logger,
	})

	return sessions, remote, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Draft and publish posts interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.store.Close()

			messageBus := bus.New(100, logger)
			defer messageBus.Close()

			dispatcher := conversation.NewDispatcher(conversation.DispatcherConfig{
				Registry:    a.registry,
				Bus:         messageBus,
				Logger:      logger,
				Concurrency: cfg.General.MaxConcurrentMessages,
			})
			go dispatcher.Run(ctx)

			cli := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cli.Start(ctx, messageBus)
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run all enabled channels (Telegram) until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.store.Close()

			messageBus := bus.New(100, logger)

			dispatcher := conversation.NewDispatcher(conversation.DispatcherConfig{
				Registry:    a.registry,
				Bus:         messageBus,
				Logger:      logger,
				Concurrency: cfg.General.MaxConcurrentMessages,
			})
			go dispatcher.Run(ctx)

			started := 0
			if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
				tg := channel.NewTelegram(channel.TelegramConfig{
					Token:     cfg.Channels.Telegram.Token,
					AllowFrom: cfg.Channels.Telegram.AllowFrom,
					ParseMode: cfg.Channels.Telegram.ParseMode,
					Logger:    logger,
				})
				go func() {
					if err := tg.Start(ctx, messageBus); err != nil {
						logger.Error("telegram channel error", "err", err)
					}
				}()
				started++
				logger.Info("telegram channel enabled")
			}

			if started == 0 {
				return fmt.Errorf("no channels enabled; enable channels.telegram in the config")
			}

			logger.Info("gateway started. Press Ctrl+C to stop.")
			<-ctx.Done()
			logger.Info("shutting down gateway...")

			const shutdownTimeout = 10 * time.Second
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				messageBus.Close()
				close(done)
			}()
			select {
			case <-done:
				logger.Info("shutdown complete")
			case <-shutdownCtx.Done():
				logger.Warn("shutdown timed out, forcing exit")
			}
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to X and store the session encrypted",
		Long:  "Drives the X login flow in a browser and stores the captured cookies encrypted. Credentials are used once and never written to disk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sessions, _, err := buildPublisher(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reader := bufio.NewReader(os.Stdin)
			fmt.Printf("X username [%s]: ", cfg.Publisher.Account)
			username, _ := reader.ReadString('\n')
			username = strings.TrimSpace(username)
			if username == "" {
				username = cfg.Publisher.Account
			}
			fmt.Print("X password: ")
			password, _ := reader.ReadString('\n')
			password = strings.TrimSpace(password)
			if password == "" {
				return fmt.Errorf("password is required")
			}

			creds := domain.Credentials{Username: username, Secret: password}
			if err := sessions.Login(ctx, cfg.Publisher.Account, creds); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Println("Logged in. Session stored for", cfg.Publisher.Account)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored X session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sessions, _, err := buildPublisher(cfg)
			if err != nil {
				return err
			}
			if err := sessions.Logout(context.Background(), cfg.Publisher.Account); err != nil {
				return err
			}
			fmt.Println("Session discarded for", cfg.Publisher.Account)
			return nil
		},
	}
}

func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post [text]",
		Short: "Post a single tweet directly, without drafting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, remote, err := buildPublisher(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := remote.PostSingle(ctx, domain.Tweet{Text: args[0]})
			if err != nil {
				if errors.Is(err, domain.ErrSessionExpired) {
					return fmt.Errorf("no valid session: run `vibelog login` first")
				}
				return err
			}
			if result.ThreadURL != "" {
				fmt.Println("Posted:", result.ThreadURL)
			} else {
				fmt.Println("Posted.")
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state and recent posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("vibelog %s\n", version)
			fmt.Printf("account: @%s\n", cfg.Publisher.Account)

			sessions, _, err := buildPublisher(cfg)
			if err != nil {
				fmt.Println("publisher: not configured:", err)
			} else if sessions.HasValidSession(context.Background(), cfg.Publisher.Account) {
				fmt.Println("session: valid")
			} else {
				fmt.Println("session: none (run `vibelog login`)")
			}

			store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, cfg.Memory.BaseURL, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			posts, err := store.ListPosts(context.Background(), 5)
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Println("posts: none yet")
				return nil
			}
			fmt.Println("recent posts:")
			for _, p := range posts {
				fmt.Printf("  %s  %s  %s\n", p.CreatedAt.Format("2006-01-02"), p.Title, p.PublicURL)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. llm.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. publisher.account amelie)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
