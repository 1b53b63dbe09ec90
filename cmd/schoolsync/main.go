package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"schoolsync/archive"
	"schoolsync/chat"
	"schoolsync/domain"
	"schoolsync/internal"
	"schoolsync/restapi"
	"schoolsync/search"
	"schoolsync/services"
	"schoolsync/transport"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "SchoolSync terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the client lifecycle, and centralizes error reporting.
// This pattern ensures all 'defer' statements (database cleanup, channel shutdown) execute
// before the program exits, and keeps initialization testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := domain.SessionFromToken(config.AuthToken)
	if err != nil {
		return exitConfig, fmt.Errorf("invalid credential token: %w", err)
	}
	logger.Info("Session resolved", "user", session.DisplayName())

	// 2. Local archive (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("archive opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	messageArchive := archive.NewMessageArchive(db, logger, config.LimitMessages)

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug archive inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		internal.StartDebugServer(db, debugPort, endpoint, func() map[string]any {
			return map[string]any{"Mode": "Client", "Time": time.Now().Format(time.RFC822)}
		})
	}

	// 3. Local search index (Bluge)
	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = index.Close()
	}()

	// 4. Chat core
	rest := restapi.NewClient(config.APIBaseURL, config.AuthToken, config.HTTPTimeout)
	manager := transport.NewManager(config.SocketURL, config.AuthToken,
		config.ReconnectAttempts, config.ReconnectDelay, logger)
	roster := chat.NewRoster()
	store := chat.NewStore(session, roster, config.ReconcileWindow, config.EchoTimeout, logger)
	controller := chat.NewController(session, manager, rest, store, roster, logger)
	controller.AddSinks(archive.NewSink(messageArchive, logger), index,
		consoleSink{session: session, controller: controller})

	service := services.NewChatService(manager, controller, store, roster, index, logger)
	defer service.Shutdown()
	service.StartFailedSweep(config.SweepInterval)

	if err := service.Connect(ctx); err != nil {
		return exitRuntime, fmt.Errorf("channel connection failed: %w", err)
	}
	if err := service.RefreshRooms(ctx); err != nil {
		return exitRuntime, fmt.Errorf("room list failed: %w", err)
	}

	// 5. Interactive loop
	printHelp()
	printRooms(service.Rooms())
	return repl(ctx, service, logger)
}

// repl reads commands from stdin until EOF, /quit or a termination signal.
func repl(ctx context.Context, service services.IChatService, logger *slog.Logger) (int, error) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt(service)
		if !scanner.Scan() {
			return exitOK, scanner.Err()
		}
		select {
		case <-ctx.Done():
			logger.Info("Stopping client...")
			return exitOK, nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if _, err := service.Send(line); err != nil {
				color.Red.Println("send failed:", err)
			}
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/quit":
			return exitOK, nil
		case "/help":
			printHelp()
		case "/rooms":
			if err := service.RefreshRooms(ctx); err != nil {
				color.Red.Println(err)
				continue
			}
			printRooms(service.Rooms())
		case "/join":
			if err := service.SelectRoom(ctx, strings.TrimSpace(arg)); err != nil {
				color.Red.Println(err)
			}
		case "/dm":
			room, err := service.StartDirectChat(ctx, strings.TrimSpace(arg))
			if err != nil {
				color.Red.Println(err)
				continue
			}
			color.Green.Printf("Direct chat with %s opened\n", room.Name)
		case "/history":
			printMessages(service.Messages())
		case "/find":
			hits, err := service.SearchHistory(ctx, line)
			if err != nil {
				color.Red.Println(err)
				continue
			}
			printHits(hits)
		default:
			color.Yellow.Printf("Unknown command %s, try /help\n", command)
		}
	}
}

func prompt(service services.IChatService) {
	banner := ""
	if room, ok := service.ActiveRoom(); ok {
		banner = room.Name
	}
	if lastErr := service.LastError(); lastErr != "" {
		color.Red.Println("! " + lastErr)
		service.ClearError()
	}
	fmt.Printf("%s> ", banner)
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
