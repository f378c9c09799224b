package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/youmna-rabie/incident-relay/internal/types"
)

var eventsLimit int

func init() {
	listEventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum number of deliveries to display")
	listEventsCmd.Flags().StringVar(&relayURL, "url", "", "relay base URL (default from config)")
	rootCmd.AddCommand(listEventsCmd)
}

var listEventsCmd = &cobra.Command{
	Use:   "list-events",
	Short: "Print recent webhook deliveries from a running relay",
	RunE:  listEvents,
}

func listEvents(cmd *cobra.Command, args []string) error {
	base, err := baseURL()
	if err != nil {
		return err
	}

	resp, err := httpClient.Get(fmt.Sprintf("%s/admin/events?limit=%d", base, eventsLimit))
	if err != nil {
		return fmt.Errorf("listing deliveries: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Events []types.Delivery `json:"events"`
		Count  int              `json:"count"`
		Error  string           `json:"error"`
	}
	if err := decodeResponse(resp, &body); err != nil {
		return err
	}
	if body.Error != "" {
		return fmt.Errorf("listing deliveries: %s", body.Error)
	}

	out := cmd.OutOrStdout()
	if body.Count == 0 {
		fmt.Fprintln(out, "No deliveries yet.")
		return nil
	}

	now := time.Now()
	fmt.Fprintf(out, "%-36s  %-12s  %-10s  %s\n", "ID", "CHANNEL", "STATUS", "RECEIVED")
	for _, d := range body.Events {
		fmt.Fprintf(out, "%-36s  %-12s  %-10s  %s (%s)\n",
			d.ID, d.ChannelID, d.Status, d.Timestamp.Format("2006-01-02 15:04:05"), humanize.RelTime(d.Timestamp, now, "ago", "from now"))
	}
	return nil
}
