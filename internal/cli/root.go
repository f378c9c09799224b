package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "incident-relay",
	Short: "Voice-agent webhook relay with live incident dashboards",
	Long: "incident-relay receives tool calls from a voice agent, publishes them on a pub/sub broker, " +
		"and serves live incident dashboards in the browser and the terminal.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "relay.yaml", "path to configuration file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
