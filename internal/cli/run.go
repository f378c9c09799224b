package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/channel"
	"github.com/youmna-rabie/incident-relay/internal/config"
	"github.com/youmna-rabie/incident-relay/internal/delivery"
	"github.com/youmna-rabie/incident-relay/internal/relay"
	"github.com/youmna-rabie/incident-relay/internal/server"
)

// webhookChannel names the voice agent's server tool in the delivery log.
const webhookChannel = "voice-agent"

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay HTTP server",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging, os.Stdout)

	deliveries, err := delivery.NewMemoryLog(cfg.Store.Capacity)
	if err != nil {
		return fmt.Errorf("creating delivery log: %w", err)
	}

	hub := broker.NewHub(0)
	defer hub.Close()

	pub := relay.New(relay.FromConfig(cfg.Broker, hub), cfg.Broker.PublishConfigured())
	defer pub.Close()
	if !pub.IsConfigured() {
		logger.Warn("broker app_id, key or secret missing; webhook calls will not be published")
	}

	sub, err := dashboardSource(cfg.Broker, hub, logger)
	if err != nil {
		return fmt.Errorf("creating dashboard subscriber: %w", err)
	}
	if c, ok := sub.(io.Closer); ok {
		defer c.Close()
	}

	srv := server.NewServer(cfg, deliveries, channel.NewToolCallChannel(webhookChannel), pub, sub, logger)

	addr := srv.Addr()
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "broker", cfg.Broker.Driver)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// dashboardSource returns the subscriber dashboards mount, or nil when the
// broker key is missing.
func dashboardSource(cfg config.BrokerConfig, hub *broker.Hub, logger *slog.Logger) (broker.Subscriber, error) {
	sub, err := broker.NewSubscriber(cfg, hub, logger)
	if errors.Is(err, broker.ErrNotConfigured) {
		logger.Warn("broker key missing; dashboards will not receive live updates")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
