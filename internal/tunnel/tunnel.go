// Package tunnel discovers the public URL of a locally running ngrok
// tunnel so the dialer can hand Twilio a reachable webhook address without
// any manual configuration.
package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAPIURL is ngrok's local inspection API.
const DefaultAPIURL = "http://127.0.0.1:4040/api/tunnels"

type tunnelList struct {
	Tunnels []tunnelInfo `json:"tunnels"`
}

type tunnelInfo struct {
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
}

// Discover asks the local ngrok agent for its public HTTPS URL. apiURL is
// the inspection endpoint; empty means DefaultAPIURL.
func Discover(ctx context.Context, apiURL string) (string, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query ngrok agent: %w (is ngrok running?)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ngrok agent answered %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var list tunnelList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("parse ngrok tunnel list: %w", err)
	}

	// Prefer https; Twilio refuses to fetch webhooks over plain http.
	for _, t := range list.Tunnels {
		if t.Proto == "https" {
			return t.PublicURL, nil
		}
	}
	if len(list.Tunnels) > 0 {
		return list.Tunnels[0].PublicURL, nil
	}
	return "", fmt.Errorf("ngrok agent reports no active tunnels")
}
