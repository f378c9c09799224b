package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youmna-rabie/incident-relay/internal/types"
)

var (
	sendType string
	sendData string
)

func init() {
	sendCmd.Flags().StringVar(&sendType, "type", string(types.EventTypeUpdateInformation), "tool call type")
	sendCmd.Flags().StringVar(&sendData, "data", "{}", "tool call data as a JSON object")
	sendCmd.Flags().StringVar(&relayURL, "url", "", "relay base URL (default from config)")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [payload]",
	Short: "Post a tool call to a running relay, as the voice agent would",
	Long: "send posts a tool call to /api/update-call. With no argument the payload is built " +
		"from --type and --data; a JSON argument is sent verbatim.",
	Example: `  incident-relay send --type dispatch_emergency_services --data '{"service_type":"ambulance","priority":"high"}'
  incident-relay send '{"location":"5th & Main","caller_type":"witness"}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: sendToolCall,
}

func buildPayload(args []string) ([]byte, error) {
	if len(args) == 1 {
		if !json.Valid([]byte(args[0])) {
			return nil, fmt.Errorf("payload is not valid JSON")
		}
		return []byte(args[0]), nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(sendData), &data); err != nil || data == nil {
		return nil, fmt.Errorf("--data must be a JSON object")
	}
	return json.Marshal(map[string]any{"type": sendType, "data": data})
}

func sendToolCall(cmd *cobra.Command, args []string) error {
	payload, err := buildPayload(args)
	if err != nil {
		return err
	}
	base, err := baseURL()
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(base+"/api/update-call", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("posting tool call: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := decodeResponse(resp, &body); err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("relay rejected tool call (%s): %s", resp.Status, body.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), body.Message)
	return nil
}
