package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/youmna-rabie/incident-relay/internal/config"
)

var (
	relayURL   string
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

// baseURL resolves where a running relay listens: --url if given, else the
// configured server address.
func baseURL() (string, error) {
	if relayURL != "" {
		return strings.TrimRight(relayURL, "/"), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("loading config (or pass --url): %w", err)
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)), nil
}

// decodeResponse reads a JSON response into v, turning non-JSON bodies into
// errors that include the status.
func decodeResponse(resp *http.Response, v any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("relay returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
