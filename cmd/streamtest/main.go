// streamtest connects to the realtime endpoint and prints decoded messages.
// Usage: go run ./cmd/streamtest --url wss://api.stayline.app/realtime --token $STAYLINE_TOKEN
//
// Without --token the credential is read from the store configured in --config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/stayline/bookingsync/internal/auth"
	"github.com/stayline/bookingsync/internal/codec"
	"github.com/stayline/bookingsync/internal/config"
	"github.com/stayline/bookingsync/internal/connection"
)

func main() {
	var (
		configPath string
		url        string
		token      string
		transport  string
		verbose    bool
	)

	flags := pflag.NewFlagSet("streamtest", pflag.ExitOnError)
	flags.StringVar(&configPath, "config", "", "path to config file (optional)")
	flags.StringVar(&url, "url", "", "realtime endpoint, overrides api.ws_url")
	flags.StringVar(&token, "token", "", "access token, overrides the credential store")
	flags.StringVar(&transport, "transport", "", "websocket transport: gorilla or coder")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print full message JSON")
	flags.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadWithDefaults(configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if url != "" {
		cfg.API.WSURL = url
	}
	if transport != "" {
		cfg.Connection.Transport = transport
	}

	var creds auth.Store
	switch {
	case token != "":
		mem := auth.NewMemoryStore()
		mem.Set(cfg.Credential.Key, token)
		creds = mem
	case cfg.Credential.Path != "":
		creds = auth.NewFileStore(cfg.Credential.Path)
	default:
		logger.Error("no credential: pass --token or set credential.path in --config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcfg := connection.DefaultManagerConfig()
	mcfg.URL = cfg.API.WSURL
	mcfg.Transport = cfg.Connection.Transport
	mcfg.CredentialKey = cfg.Credential.Key

	mgr := connection.NewManager(mcfg, creds, logger)
	sub := mgr.Subscribe()
	defer sub.Close()

	logger.Info("connecting", "url", mcfg.URL, "transport", mcfg.Transport)
	mgr.Connect(ctx)
	if mgr.State() == connection.StateIdle {
		logger.Error("not connected: credential missing or expired")
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := mgr.Stats()
				logger.Info("stats",
					"state", s.State,
					"opens", s.Opens,
					"drops", s.Drops,
					"received", s.FramesReceived,
					"dropped", s.FramesDropped,
					"decode_errors", s.DecodeErrors,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			mgr.Disconnect()
			logger.Info("shutdown complete")
			return
		case msg := <-sub.C:
			printMessage(msg, verbose)
		}
	}
}

func printMessage(msg codec.Message, verbose bool) {
	if verbose {
		data, err := codec.Encode(msg)
		if err != nil {
			fmt.Printf("[%s] encode: %v\n", msg.Kind(), err)
			return
		}
		fmt.Printf("[%s] %s\n", msg.Kind(), data)
		return
	}

	switch m := msg.(type) {
	case codec.Connected:
		fmt.Println("[CONNECTED]")
	case codec.BookingStatusUpdated:
		fmt.Printf("[BOOKING] id=%s status=%s payment=%s\n", m.BookingID, m.Status, m.PaymentID)
	case codec.NotificationNew:
		fmt.Printf("[NOTIFICATION] id=%s category=%s title=%q\n", m.ID, m.Category, m.Title)
	case codec.ChatMessage:
		fmt.Printf("[CHAT] conversation=%s sender=%s content=%q\n", m.ConversationID, m.SenderID, m.Content)
	case codec.ChatTyping:
		fmt.Printf("[TYPING] conversation=%s user=%s\n", m.ConversationID, m.UserID)
	case codec.Unrecognized:
		fmt.Printf("[UNKNOWN] type=%s payload=%s\n", m.Type, m.Payload)
	}
}
