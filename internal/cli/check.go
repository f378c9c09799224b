package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youmna-rabie/incident-relay/internal/config"
)

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and show which features it enables",
	RunE:  checkConfig,
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	b := cfg.Broker
	fmt.Fprintf(out, "%-18s %s:%d\n", "listen", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "%-18s %s\n", "broker driver", b.Driver)
	if b.Driver != config.DriverMemory {
		fmt.Fprintf(out, "%-18s %s (cluster %s)\n", "broker address", b.Address(), b.Cluster)
	}
	fmt.Fprintf(out, "%-18s %s\n", "codec", b.Codec)
	fmt.Fprintf(out, "%-18s %s\n", "publish", enabled(b.PublishConfigured(), "needs app_id, key and secret"))
	fmt.Fprintf(out, "%-18s %s\n", "live dashboards", enabled(b.SubscribeConfigured(), "needs key"))
	fmt.Fprintf(out, "%-18s %s\n", "voice widget", enabled(cfg.Voice.AgentID != "", "needs voice.agent_id"))
	fmt.Fprintf(out, "%-18s %d\n", "delivery log", cfg.Store.Capacity)
	return nil
}

func enabled(ok bool, hint string) string {
	if ok {
		return "enabled"
	}
	return "disabled (" + hint + ")"
}
