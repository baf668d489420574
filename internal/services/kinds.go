package services

import "github.com/imamik/tradefleet/internal/config"

// definition describes one service kind.
type definition struct {
	kind     string
	defaults map[string]any
	// volumes are host:container mounts for persistent data.
	volumes []string
}

// definitions is the closed table of service kinds.
var definitions = []definition{
	{
		kind: config.ServiceKindDataCollector,
		defaults: map[string]any{
			"image":     "ghcr.io/tradefleet/data-collector:latest",
			"port":      8080,
			"exchanges": []any{"binance"},
			"symbols":   []any{"BTCUSDT", "ETHUSDT"},
			"interval":  "1m",
			"storage": map[string]any{
				"path":      "/data",
				"retention": "30d",
			},
		},
		volumes: []string{"/var/lib/tradefleet/data-collector:/data"},
	},
	{
		kind: config.ServiceKindMonitor,
		defaults: map[string]any{
			"image":           "prom/prometheus:latest",
			"port":            9090,
			"retention":       "15d",
			"scrape_interval": "15s",
			"alert_webhook":   "",
			"node_exporter":   true,
		},
		volumes: []string{"/var/lib/tradefleet/monitor:/prometheus"},
	},
	{
		kind: config.ServiceKindTradingBot,
		defaults: map[string]any{
			"image":     "ghcr.io/tradefleet/trading-bot:latest",
			"port":      8081,
			"strategy":  "grid",
			"dry_run":   true,
			"max_open":  3,
			"log_level": "info",
		},
		volumes: []string{"/var/lib/tradefleet/trading-bot:/state"},
	},
}
