// Package config handles configuration for the duochat terminal client.
package config

// Config holds runtime settings for the duochat client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
//   - DatabaseDSN: path of the local sqlite session cache.
type Config struct {
	ServerEndpointAddr string
	DatabaseDSN        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "duochat.db"
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
