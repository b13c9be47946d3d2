package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/remote"
	"github.com/kalambet/folio/internal/storage"
	"github.com/kalambet/folio/internal/view"
)

const shutdownTimeout = 5 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the folio server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running folio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folio status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(commandContext(cmd))
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "folio.pid")
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

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// durationOr parses raw, falling back to def with a warning when it is not a
// valid duration.
func durationOr(key, raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration in config, using default", "key", key, "value", raw, "default", def, "error", err)
		return def
	}
	return d
}

// openProvider builds the configured profile source. The returned close
// function releases whatever the source holds open.
func openProvider(cfg config.Config) (profile.Provider, func() error, error) {
	noop := func() error { return nil }
	cacheTTL := durationOr("source.cache_ttl", cfg.Source.CacheTTL, 60*time.Second)

	switch cfg.Source.Kind {
	case config.SourceMock:
		delay := durationOr("source.mock_delay", cfg.Source.MockDelay, profile.DefaultMockDelay)
		return profile.NewMockProvider(profile.Sample(), delay), noop, nil

	case config.SourceSQLite:
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening storage: %w", err)
		}
		p := profile.NewStoreProvider(store, storage.ErrNotFound)
		return profile.NewCachedProvider(p, cacheTTL), store.Close, nil

	case config.SourceHTTP:
		client := remote.New(cfg.Source.URL, nil)
		return profile.NewCachedProvider(client, cacheTTL), noop, nil

	default:
		return nil, nil, fmt.Errorf("unsupported source.kind %q", cfg.Source.Kind)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Refuse to start twice.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	running := remote.New(localURL(cfg), nil).IsRunning(probeCtx)
	probeCancel()
	if running {
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("folio is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("folio is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStep("Opening %s profile source", cfg.Source.Kind)
	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeProvider(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing profile source: %v\n", err)
		}
	}()
	if cfg.Source.Kind == config.SourceHTTP && !remote.New(cfg.Source.URL, nil).IsRunning(ctx) {
		printWarning("profile source %s is not reachable; views will offer a retry until it is", cfg.Source.URL)
	}

	loadTimeout := durationOr("view.load_timeout", cfg.View.LoadTimeout, 10*time.Second)
	viewLogger := slog.Default().With("component", "view")
	sessions := api.NewSessions(func() *view.View {
		return view.New(provider, view.Options{LoadTimeout: loadTimeout, Logger: viewLogger})
	}, api.SessionOptions{
		TTL:         durationOr("view.session_ttl", cfg.View.SessionTTL, api.DefaultSessionTTL),
		MaxSessions: cfg.View.MaxSessions,
		Logger:      slog.Default().With("component", "sessions"),
	})

	handler := api.NewHandler(api.Deps{
		Sessions: sessions,
		Provider: provider,
		Logger:   slog.Default().With("component", "http"),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "folio listening on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
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
		printError("folio is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop folio (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to folio (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	if remote.New(localURL(cfg), nil).IsRunning(ctx) {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("Server", "stopped")
	}

	switch cfg.Source.Kind {
	case config.SourceHTTP:
		state := "unreachable"
		if remote.New(cfg.Source.URL, nil).IsRunning(ctx) {
			state = "reachable"
		}
		printStatus("Source", "http %s (%s)", cfg.Source.URL, state)
	case config.SourceMock:
		printStatus("Source", "mock (delay %s)", cfg.Source.MockDelay)
	default:
		printStatus("Source", "%s", cfg.Source.Kind)
	}

	printStatus("Load timeout", "%s", cfg.View.LoadTimeout)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
