package config

import "os"

// Default service endpoints. Each can be overridden per environment with the
// matching SENTINEL_* variable.
const (
	DefaultMarketURL = "https://acp.openclaw.io/api"
	DefaultBoardURL  = "https://bounties.openclaw.io/api"
	DefaultEventsURL = "nats://events.openclaw.io:4222"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MarketURL resolves the marketplace API base URL.
func MarketURL(override string) string {
	if override != "" {
		return override
	}
	return envOr("SENTINEL_MARKET_URL", DefaultMarketURL)
}

// BoardURL resolves the bounty board API base URL.
func BoardURL(override string) string {
	if override != "" {
		return override
	}
	return envOr("SENTINEL_BOARD_URL", DefaultBoardURL)
}

// EventsURL resolves the job event broker URL.
func EventsURL(override string) string {
	if override != "" {
		return override
	}
	return envOr("SENTINEL_EVENTS_URL", DefaultEventsURL)
}
