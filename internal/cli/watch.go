package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/config"
	"github.com/youmna-rabie/incident-relay/internal/dashboard"
	"github.com/youmna-rabie/incident-relay/internal/tui"
)

var watchPlain bool

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per change instead of the full-screen dashboard")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live incident dashboard in the terminal",
	RunE:  watchDashboard,
}

func watchDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Broker.Driver == config.DriverMemory {
		return fmt.Errorf("watch subscribes to the broker directly and needs the redis or mqtt driver, not %q", cfg.Broker.Driver)
	}

	plain := watchPlain || !isTerminal(os.Stdout)

	// The full-screen dashboard owns the terminal, so logs are dropped there.
	var logOut io.Writer = os.Stderr
	if !plain {
		logOut = io.Discard
	}
	logger := newLogger(cfg.Logging, logOut)

	src, err := broker.NewSubscriber(cfg.Broker, nil, logger)
	if errors.Is(err, broker.ErrNotConfigured) {
		return fmt.Errorf("broker.key is required to watch: %w", err)
	}
	if err != nil {
		return fmt.Errorf("creating subscriber: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := dashboard.NewState()

	if plain {
		out := tui.NewPlain(cmd.OutOrStdout())
		sub := dashboard.NewSubscriber(src, state, dashboard.WithLogger(logger), dashboard.WithOnChange(out.OnChange))
		if err := sub.Mount(ctx); err != nil {
			return err
		}
		defer sub.Unmount()
		<-ctx.Done()
		return nil
	}

	app := tui.NewApp(state)
	sub := dashboard.NewSubscriber(src, state, dashboard.WithLogger(logger), dashboard.WithOnChange(app.OnChange))
	app.OnDismiss(sub.Dismiss)
	if err := sub.Mount(ctx); err != nil {
		return err
	}
	defer sub.Unmount()

	go func() {
		<-ctx.Done()
		app.Stop()
	}()
	return app.Run()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
