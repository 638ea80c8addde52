package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livedoc/livedoc/internal/config"
	"github.com/livedoc/livedoc/internal/event"
	"github.com/livedoc/livedoc/internal/logging"
	"github.com/livedoc/livedoc/internal/server"
	"github.com/livedoc/livedoc/internal/watcher"
)

const shutdownTimeout = 30 * time.Second

var (
	servePort          int
	serveHostname      string
	serveDebounce      time.Duration
	serveFollowReplace bool
	serveNoWatch       bool
	serveBuffer        int
	serveCORS          bool
	serveConfigFile    string
)

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to listen on")
	cmd.Flags().DurationVar(&serveDebounce, "debounce", 0, "Collapse bursts of changes into one update after this quiet period (0 disables)")
	cmd.Flags().BoolVar(&serveFollowReplace, "follow-replace", false, "Treat a file re-created under the document's name as a change")
	cmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Serve the document without live reload")
	cmd.Flags().IntVar(&serveBuffer, "buffer", event.DefaultBufferSize, "Pending notifications kept per client before dropping")
	cmd.Flags().BoolVar(&serveCORS, "cors", false, "Allow cross-origin requests")
	cmd.Flags().StringVar(&serveConfigFile, "config", "", "Config file (overrides LIVEDOC_CONFIG)")
}

// resolveConfig layers command-line flags and positional arguments over the
// loaded configuration. The positional port is reported through the returned
// string when it had to be replaced by the default.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	if serveConfigFile != "" {
		os.Setenv("LIVEDOC_CONFIG", serveConfigFile)
	}

	var document string
	if len(args) > 0 {
		document = args[0]
	}

	cfg, err := config.Load(document)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("hostname") {
		cfg.Hostname = serveHostname
	}
	if flags.Changed("debounce") {
		cfg.Debounce = serveDebounce
	}
	if flags.Changed("follow-replace") {
		cfg.FollowReplace = serveFollowReplace
	}
	if flags.Changed("buffer") {
		cfg.BufferSize = serveBuffer
	}
	if flags.Changed("cors") {
		cfg.EnableCORS = serveCORS
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile {
		cfg.LogToFile = true
	}

	var badPort string
	if len(args) > 1 {
		port, ok := config.ParsePort(args[1])
		if !ok {
			badPort = args[1]
		}
		cfg.Port = port
	}

	return cfg, badPort, nil
}

// initLogging configures the global logger from cfg.
func initLogging(cfg *config.Config) {
	var logDir string
	if cfg.LogToFile {
		dir, err := config.GetPaths().LogDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot create log directory: %v\n", err)
		} else {
			logDir = dir
		}
	}
	logging.Init(logging.FromOptions(cfg.LogLevel, printLogs, logDir))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, badPort, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	initLogging(cfg)
	defer logging.Close()

	if badPort != "" {
		logging.Error().Str("port", badPort).Int("default", config.DefaultPort).Msg("invalid port, using default port")
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoDocument) {
			return fmt.Errorf("%w (usage: %s)", err, cmd.UseLine())
		}
		return err
	}

	if !config.IsPDF(cfg.Document) {
		logging.Warn().Str("document", cfg.Document).Msg("document does not have a .pdf extension, browsers may not display it inline")
	}

	target, err := watcher.NewTarget(cfg.Document)
	if err != nil {
		return err
	}

	logging.Info().
		Str("version", Version).
		Str("document", target.Path).
		Str("addr", cfg.Addr()).
		Bool("live", !serveNoWatch).
		Msg("starting livedoc")

	hub := event.NewHub(event.WithBufferSize(cfg.BufferSize))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := event.LogChanges(ctx, hub); err != nil {
		logging.Warn().Err(err).Msg("change log disabled")
	}

	// A nil interface, not a nil *Watcher, disables live reload in the server.
	var watch server.WatchStatus
	var w *watcher.Watcher
	if serveNoWatch {
		logging.Warn().Msg("live reload disabled")
	} else {
		w, err = watcher.Start(target, func(ev event.ChangeEvent) {
			hub.Publish(ev)
		}, watcher.Options{
			Debounce:      cfg.Debounce,
			FollowReplace: cfg.FollowReplace,
		})
		if err != nil {
			hub.Close()
			return err
		}
		watch = w
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Hostname = cfg.Hostname
	serverConfig.Port = cfg.Port
	serverConfig.Document = target.Path
	serverConfig.EnableCORS = cfg.EnableCORS
	serverConfig.Heartbeat = cfg.Heartbeat

	srv := server.New(serverConfig, hub, watch)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("url", "http://"+srv.Addr()).Msg("server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal, POST /stop or a listen failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down server")
	case <-srv.Stopped():
		logging.Info().Msg("stop requested, shutting down server")
	case serveErr = <-errCh:
		logging.Error().Err(serveErr).Msg("server error")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("server shutdown error")
	}

	if w != nil {
		w.Stop()
	}

	logging.Info().Msg("server stopped")
	return serveErr
}
