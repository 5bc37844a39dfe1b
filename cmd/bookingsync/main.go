// bookingsync runs the realtime sync layer against in-memory stores.
//
// Usage:
//
//	bookingsync --config configs/bookingsync.yaml [--env-file .env]
//	bookingsync --config configs/bookingsync.yaml --room R-12 --check-in 2026-07-01 --nights 3
//
// With --room set, one checkout is submitted once the realtime connection
// is up and the saga is followed until it finishes. If the room is taken,
// stdin is asked whether to retry or dismiss.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/stayline/bookingsync/internal/api"
	"github.com/stayline/bookingsync/internal/auth"
	"github.com/stayline/bookingsync/internal/backoff"
	"github.com/stayline/bookingsync/internal/config"
	"github.com/stayline/bookingsync/internal/connection"
	"github.com/stayline/bookingsync/internal/model"
	"github.com/stayline/bookingsync/internal/poller"
	"github.com/stayline/bookingsync/internal/router"
	"github.com/stayline/bookingsync/internal/saga"
	"github.com/stayline/bookingsync/internal/store"
	"github.com/stayline/bookingsync/internal/version"
)

// checkoutFlags describes the optional one-shot checkout.
type checkoutFlags struct {
	property string
	room     string
	checkIn  string
	nights   int
	guests   int
}

func (f checkoutFlags) request() (model.BookingRequest, error) {
	in, err := time.Parse(time.DateOnly, f.checkIn)
	if err != nil {
		return model.BookingRequest{}, fmt.Errorf("parse --check-in: %w", err)
	}
	req := model.BookingRequest{
		PropertyID: f.property,
		RoomID:     f.room,
		CheckIn:    in,
		CheckOut:   in.AddDate(0, 0, f.nights),
		Guests:     f.guests,
	}
	return req, req.Validate()
}

// app bundles the running components for the debug endpoint.
type app struct {
	manager       connection.Manager
	router        router.Router
	tracker       *saga.Tracker
	conflicts     *saga.ConflictController
	bookings      *store.BookingStore
	notifications *store.NotificationStore
	chat          *store.ChatStore
	poller        *poller.Poller
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		envFiles    []string
		showVersion bool
		checkout    checkoutFlags
	)

	flagSet := pflag.NewFlagSet("bookingsync", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "configs/bookingsync.yaml", "path to config file")
	flagSet.StringSliceVar(&envFiles, "env-file", nil, "dotenv files loaded before config expansion")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.StringVar(&checkout.property, "property", "", "property id for the checkout")
	flagSet.StringVar(&checkout.room, "room", "", "room id; submits one checkout when set")
	flagSet.StringVar(&checkout.checkIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	flagSet.IntVar(&checkout.nights, "nights", 1, "number of nights")
	flagSet.IntVar(&checkout.guests, "guests", 1, "number of guests")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Println("bookingsync", version.String())
		return nil
	}

	var checkoutReq *model.BookingRequest
	if checkout.room != "" {
		req, err := checkout.request()
		if err != nil {
			return fmt.Errorf("invalid checkout: %w", err)
		}
		checkoutReq = &req
	}

	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting bookingsync",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds := auth.NewFileStore(cfg.Credential.Path)

	apiClient := api.NewClient(cfg.API.RestURL, creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		api.WithCredentialKey(cfg.Credential.Key),
	)

	a := &app{
		bookings:      store.NewBookingStore(),
		notifications: store.NewNotificationStore(store.DefaultNotificationLimit),
		chat:          store.NewChatStore(),
	}
	a.conflicts = saga.NewConflictController(logger.With("component", "conflict"))
	a.tracker = saga.NewTracker(apiClient, a.bookings, a.conflicts, logger.With("component", "saga"))

	a.manager = connection.NewManager(connection.ManagerConfig{
		URL:           cfg.API.WSURL,
		Transport:     cfg.Connection.Transport,
		CredentialKey: cfg.Credential.Key,
		Backoff: backoff.Policy{
			Initial:    cfg.Connection.InitialDelay,
			Multiplier: cfg.Connection.Multiplier,
			Ceiling:    cfg.Connection.MaxDelay,
		},
		HandshakeTimeout: cfg.Connection.HandshakeTimeout,
		PingTimeout:      cfg.Connection.PingTimeout,
		WriteTimeout:     cfg.Connection.WriteTimeout,
		SubscriberBuffer: cfg.Connection.SubscriberBuffer,
	}, creds, logger.With("component", "connection"))

	sub := a.manager.Subscribe()
	defer sub.Close()

	a.router = router.NewRouter(router.RouterConfig{TypingWindow: cfg.Router.TypingWindow}, sub.C, router.Sinks{
		Bookings:      a.tracker,
		Notifications: a.notifications,
		Chat:          a.chat,
	}, logger.With("component", "router"))

	if err := a.router.Start(ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	if cfg.Saga.ReconcileInterval > 0 {
		a.poller = poller.New(poller.Config{Interval: cfg.Saga.ReconcileInterval}, a.tracker, nil, logger.With("component", "poller"))
		if err := a.poller.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Debug.Port > 0 {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Debug.Port),
			Handler: a.debugHandler(),
		}
		g.Go(func() error {
			logger.Info("starting debug server", "port", cfg.Debug.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		a.manager.Connect(gctx)
		logger.Info("realtime connect finished", "state", a.manager.State())
		return nil
	})

	if checkoutReq != nil {
		req := *checkoutReq
		g.Go(func() error {
			a.runCheckout(gctx, req, os.Stdin, os.Stdout, logger)
			return nil
		})
	}

	<-gctx.Done()
	logger.Info("shutting down...")

	a.manager.Disconnect()
	a.conflicts.Dismiss()
	a.tracker.Reset()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.poller != nil {
		if err := a.poller.Stop(shutdownCtx); err != nil {
			logger.Warn("poller stop", "error", err)
		}
	}
	if err := a.router.Stop(shutdownCtx); err != nil {
		logger.Warn("router stop", "error", err)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("bookingsync stopped")
	return nil
}

// errDismissed ends a checkout the user gave up on after a conflict.
var errDismissed = errors.New("checkout dismissed")

// runCheckout submits one booking and logs the saga until it settles.
func (a *app) runCheckout(ctx context.Context, req model.BookingRequest, prompt io.Reader, out io.Writer, logger *slog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for a.manager.State() != connection.StateOpen {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	err := a.tracker.Submit(ctx, req)
	if errors.Is(err, saga.ErrConflict) {
		logger.Warn("room no longer available", "room_id", req.RoomID)
		err = a.resolveConflict(ctx, prompt, out, logger)
	}
	switch {
	case errors.Is(err, errDismissed):
		logger.Info("checkout dismissed", "room_id", req.RoomID)
		return
	case err != nil:
		logger.Error("checkout failed", "error", err)
		return
	}

	for {
		switch st := a.tracker.Status(); st {
		case saga.StatusConfirmed, saga.StatusFailed:
			logger.Info("checkout finished", "booking_id", a.tracker.CurrentBookingID(), "status", st)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// resolveConflict asks the user what to do about a visible conflict until
// a retry gets past it or the user dismisses. End of input dismisses.
func (a *app) resolveConflict(ctx context.Context, prompt io.Reader, out io.Writer, logger *slog.Logger) error {
	answers := make(chan string)
	go func() {
		defer close(answers)
		sc := bufio.NewScanner(prompt)
		for sc.Scan() {
			select {
			case answers <- strings.ToLower(strings.TrimSpace(sc.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprintf(out, "Room is no longer available (retries: %d). [r]etry or [d]ismiss? ", a.conflicts.State().Attempt)

		var answer string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ans, ok := <-answers:
			if !ok {
				ans = "d"
			}
			answer = ans
		}

		switch answer {
		case "r", "retry":
			err := a.conflicts.Retry(ctx, a.tracker.Resubmit)
			if errors.Is(err, saga.ErrConflict) {
				logger.Warn("retry hit another conflict", "attempt", a.conflicts.State().Attempt)
				continue
			}
			return err
		case "d", "dismiss":
			a.conflicts.Dismiss()
			a.tracker.Reset()
			return errDismissed
		default:
			fmt.Fprintln(out, "please answer r or d")
		}
	}
}

func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// debugHandler serves /health and /debug/state.
func (a *app) debugHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := a.manager.State()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status: "healthy",
			Components: map[string]any{
				"connection": state.String(),
				"saga":       a.tracker.Status(),
			},
		}
		if state != connection.StateOpen {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, r *http.Request) {
		ms := a.manager.Stats()
		state := map[string]any{
			"connection": map[string]any{
				"state":             ms.State.String(),
				"attempt":           ms.Attempt,
				"opens":             ms.Opens,
				"drops":             ms.Drops,
				"reconnect_pending": ms.ReconnectPending,
				"frames_received":   ms.FramesReceived,
				"frames_delivered":  ms.FramesDelivered,
				"frames_dropped":    ms.FramesDropped,
				"decode_errors":     ms.DecodeErrors,
			},
			"router":   a.router.Stats(),
			"booking":  a.bookings.Snapshot(),
			"conflict": a.conflicts.State(),
			"notifications": map[string]any{
				"count":  len(a.notifications.List()),
				"unread": a.notifications.Unread(),
			},
			"conversations": a.chat.Conversations(),
		}
		if a.poller != nil {
			state["poller"] = a.poller.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	})

	return mux
}
