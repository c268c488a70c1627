package config

import "time"

// Config holds runtime settings for the Corkboard CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend REST API.
//   - RelayURL: WebSocket URL of the real-time relay endpoint.
//   - RoomID: the room this client joins on startup.
//   - DisplayName: identity shown to other participants; prompted for
//     interactively when empty.
//   - CursorColor: the color peers render this client's cursor in.
//   - RequestTimeout: application-level timeout for durable-store calls;
//     a call that outlives it runs the rollback/restore path.
type Config struct {
	ServerEndpointAddr string
	RelayURL           string
	RoomID             string
	DisplayName        string
	CursorColor        string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.RelayURL = "ws://127.0.0.1:8080/ws"
	c.RoomID = "lobby"
	c.DisplayName = ""
	c.CursorColor = "#f59e0b"
	c.RequestTimeout = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
