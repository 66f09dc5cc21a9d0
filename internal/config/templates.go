package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Fraud Monitor Configuration

[api]
# Base URL of the fraud detection API; the push endpoint is derived from it
base_url = "http://localhost:8000"
# Per-request timeout
timeout = "10s"

[push]
# Subscribe to fraud alert notifications over websocket
enabled = true
# Reconnect attempts after the channel closes (0 = rely on polling only)
reconnect_attempts = 0
reconnect_delay = "1s"

[poll]
# Summary refresh cadence
summary_interval = "2s"
# Transactions and alerts refresh cadence
data_interval = "5s"

[store]
# Maximum transactions and alerts kept locally
max_items = 500

[audit]
# Record submitted transactions and alert reviews
enabled = true
# Backend: "sqlite" or "file"
backend = "sqlite"

[metrics]
enabled = false
listen_addr = ":9108"

[notify]
# Announce new pending alerts while watching
enabled = true
bell = true
# Optional JSON webhook for new alerts
webhook_url = ""

[log]
# Level: debug, info, warn, error
level = "info"
console = true
file = false
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
