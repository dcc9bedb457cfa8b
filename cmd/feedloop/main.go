// Command feedloop is the feed engagement daemon: it drives a browser
// tab on a feed page, likes and comments on newly rendered posts, and
// serves metrics and health over HTTP.
//
// Usage:
//
//	feedloop -config feedloop.yaml
//	feedloop -url https://feed.example.com     # defaults everywhere else
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/feedloop/engage"
	"github.com/hazyhaar/feedloop/feed"
	"github.com/hazyhaar/feedloop/internal/browser"
	"github.com/hazyhaar/feedloop/generation"
	"github.com/hazyhaar/feedloop/idgen"
	"github.com/hazyhaar/feedloop/observability"
	"github.com/hazyhaar/feedloop/settings"
	"github.com/hazyhaar/feedloop/transport"
)

func main() {
	configPath := flag.String("config", "", "path to feedloop.yaml config file")
	feedURL := flag.String("url", "", "feed page URL (overrides config)")
	envFile := flag.String("env", "", "path to a .env file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
			os.Exit(1)
		}
	}

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *feedURL); err != nil {
		logger.Error("feedloop: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, feedURL string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	if feedURL != "" {
		cfg.Feed.URL = feedURL
	}
	if cfg.Feed.URL == "" {
		return errors.New("no feed url: pass -url or set feed.url in the config")
	}

	// Settings store.
	if err := os.MkdirAll(filepath.Dir(cfg.Settings.DB), 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Settings.DB)
	if err != nil {
		return fmt.Errorf("open settings db: %w", err)
	}
	defer db.Close()

	store := settings.NewStore(db, logger)
	if err := store.Init(ctx); err != nil {
		return err
	}
	persisted, err := store.Load(ctx)
	if err != nil {
		return err
	}

	metrics, err := observability.New()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	bus := transport.New(transport.WithLogger(logger))
	defer bus.Close()

	// Generation coordinator, in-process by default. A remote endpoint
	// takes over the generation_request route when configured.
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = persisted.APIKey
	}
	coord := generation.New(cfg.Generation, bus, logger, metrics)
	coord.Register(ctx, bus)
	if cfg.Generation.RemoteEndpoint != "" {
		if err := bus.RegisterRemote(transport.MsgGenerationRequest,
			cfg.Generation.RemoteEndpoint, transport.HTTPFactory(), nil); err != nil {
			return fmt.Errorf("remote generation route: %w", err)
		}
	}

	// Browser and page.
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headful:          cfg.Browser.Headful,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	page, err := browser.OpenTab(ctx, mgr, cfg.Feed.URL)
	if err != nil {
		return fmt.Errorf("open feed page: %w", err)
	}

	surface := feed.NewSurface(page, cfg.Feed.Selectors,
		feed.WithLogger(logger),
		feed.WithIDGenerator(idgen.Prefixed("fl_", idgen.NanoID(10))))
	source := feed.NewMutationSource(page, logger)

	// Automation core.
	session := engage.NewSession()
	requester := engage.RequesterFunc(func(ctx context.Context, itemID, text string) error {
		payload, err := json.Marshal(transport.GenerationRequest{ItemID: itemID, Prompt: text})
		if err != nil {
			return err
		}
		_, err = bus.Call(ctx, transport.MsgGenerationRequest, payload)
		return err
	})
	engine := engage.NewEngine(session, requester, engage.EngineConfig{
		EnableLiking:       persisted.EnableLiking,
		EnableCommenting:   persisted.EnableCommenting,
		CommentProbability: cfg.Engage.CommentProbability,
		Logger:             logger,
		Metrics:            metrics,
	})
	queue := engage.NewQueue(engage.QueueConfig{Logger: logger, Metrics: metrics})
	sched := engage.NewScheduler(session, surface, engine, queue, source, engage.SchedulerConfig{
		Mode:           cfg.Engage.Mode,
		ScrollFraction: cfg.Engage.ScrollFraction,
		SettleDelay:    cfg.Engage.SettleDelay,
		Logger:         logger,
		Metrics:        metrics,
	})
	sched.SetIndicator(feed.NewBadge(page))
	sched.Register(ctx, bus)
	defer sched.Disable()

	// Push the persisted state into the loop; this also starts it when
	// automation was left enabled.
	sched.ApplySettings(ctx, persisted.AutomationEnabled,
		persisted.EnableLiking, persisted.EnableCommenting,
		persisted.Mode, persisted.CommentProbability)

	// Settings written by any other process are pushed into the running
	// loop without restart.
	go store.Watch(ctx, settings.WatchOptions{}, func(st settings.Settings) {
		coord.ApplySettings(st.APIKey, st.ModelID)
		bus.Notify(ctx, transport.MsgSettingsUpdated, st)
	})

	// HTTP: metrics, health, status.
	router := chi.NewRouter()
	router.Handle("/metrics", metrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"enabled": session.Enabled(),
		})
	})
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"enabled":     session.Enabled(),
			"running":     session.Running(),
			"counters":    session.Counters(),
			"last_action": session.LastAction(),
		})
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("feedloop: http listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("feedloop: http server", "error", err)
		}
	}()

	logger.Info("feedloop: started", "url", cfg.Feed.URL, "mode", cfg.Engage.Mode,
		"automation_enabled", persisted.AutomationEnabled)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("feedloop: http shutdown", "error", err)
	}
	return nil
}
