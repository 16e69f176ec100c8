package daemon

import "time"

// StartOptions configures the seller runtime (home, identity, endpoints, health server).
type StartOptions struct {
	Home       string
	Identity   string // profile name; empty means the active agent
	HealthAddr string // localhost health/metrics listener, default 127.0.0.1:3648
	PprofAddr  string
	MarketURL  string // marketplace API base URL override
	EventsURL  string // job event broker URL override
}

// StatusInfo is the result of Status (running or not, plus the runtime record).
type StatusInfo struct {
	Running   bool
	PID       int
	Identity  string
	Wallet    string
	Addr      string
	StartedAt time.Time
}
