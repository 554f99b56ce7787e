package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JohnDonavon/magic-app/internal/config"
	"github.com/JohnDonavon/magic-app/internal/scryfall"
	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/repository"
	"github.com/JohnDonavon/magic-app/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ~/.magic-app/config.toml)")
	dbPath     = flag.String("db", "", "Path to the database file (overrides config)")
	debugMode  = flag.Bool("debug", false, "Enable verbose debug logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command> [args]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  init                Create the database and apply migrations\n")
	fmt.Fprintf(os.Stderr, "  fetch <card-id>     Fetch a card from Scryfall and store it locally\n")
	fmt.Fprintf(os.Stderr, "  card <card-id>      Show a stored card\n")
	fmt.Fprintf(os.Stderr, "  decks               List stored decks\n")
	fmt.Fprintf(os.Stderr, "  backup [dir]        Create a verified database snapshot\n")
	fmt.Fprintf(os.Stderr, "  version             Print the application version\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *debugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	if command == "version" {
		fmt.Println(version.GetVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	switch command {
	case "init":
		return cmdInit(ctx, client)
	case "fetch":
		if len(args) != 1 {
			return fmt.Errorf("fetch requires exactly one card id")
		}
		return cmdFetch(ctx, client, cfg, args[0])
	case "card":
		if len(args) != 1 {
			return fmt.Errorf("card requires exactly one card id")
		}
		return cmdCard(ctx, client, args[0])
	case "decks":
		return cmdDecks(ctx, client)
	case "backup":
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return cmdBackup(ctx, client, dir)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*storage.Client, error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	busyTimeout, err := cfg.GetBusyTimeout()
	if err != nil {
		return nil, err
	}

	dbConfig := &storage.Config{
		Path:        path,
		BusyTimeout: busyTimeout,
		JournalMode: cfg.Database.JournalMode,
		Synchronous: cfg.Database.Synchronous,
	}
	return storage.NewClient(dbConfig, storage.Migrations()), nil
}

func newCatalog(cfg *config.Config) (*scryfall.Client, error) {
	delay, err := cfg.GetRequestDelay()
	if err != nil {
		return nil, err
	}
	return scryfall.NewClient(
		scryfall.WithBaseURL(cfg.Scryfall.BaseURL),
		scryfall.WithUserAgent(cfg.Scryfall.UserAgent),
		scryfall.WithRateLimit(delay),
	), nil
}

func cmdInit(ctx context.Context, client *storage.Client) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	slog.Info("database ready", "path", client.Path())
	return nil
}

func cmdFetch(ctx context.Context, client *storage.Client, cfg *config.Config, cardID string) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	catalog, err := newCatalog(cfg)
	if err != nil {
		return err
	}

	service := repository.NewService(client, catalog)
	card, err := service.ImportCard(ctx, cardID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s) [%s %s]\n", card.Name, card.ID, strOrDash(card.Set), strOrDash(card.CollectorNumber))
	return nil
}

func strOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func cmdCard(ctx context.Context, client *storage.Client, cardID string) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	service := repository.NewService(client, nil)
	card, err := service.Cards().GetByID(ctx, cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return fmt.Errorf("card %s not found in local database", cardID)
	}

	fmt.Printf("Name:       %s\n", card.Name)
	fmt.Printf("Set:        %s (%s)\n", strOrDash(card.SetName), strOrDash(card.Set))
	fmt.Printf("Type:       %s\n", strOrDash(card.TypeLine))
	if card.ManaCost != nil {
		fmt.Printf("Mana cost:  %s\n", *card.ManaCost)
	}
	if card.OracleText != nil {
		fmt.Printf("Oracle:     %s\n", *card.OracleText)
	}
	fmt.Printf("Updated:    %s\n", card.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func cmdDecks(ctx context.Context, client *storage.Client) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	service := repository.NewService(client, nil)
	decks, err := service.Decks().GetAll(ctx)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Println("No decks stored.")
		return nil
	}

	for _, deck := range decks {
		format := "-"
		if deck.Format != nil {
			format = *deck.Format
		}
		fmt.Printf("%s  %-30s  %s\n", deck.ID, deck.Name, format)
	}
	return nil
}

func cmdBackup(ctx context.Context, client *storage.Client, dir string) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	manager := storage.NewBackupManager(client)
	path, err := manager.Backup(ctx, dir)
	if err != nil {
		return err
	}

	slog.Info("backup created", "path", path)
	return nil
}