package cli

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

// Environment variables read by the CLI
const (
	EnvServerURL = "FOURINAROW_SERVER_URL"
	EnvPlayer    = "FOURINAROW_PLAYER"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	// Player is the default name for play and player commands
	Player  string
	Output  string
	Verbose bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault(EnvServerURL, "http://localhost:8080"),
		Player:    os.Getenv(EnvPlayer),
		Output:    "text",
		Verbose:   false,
	}
}

// WebSocketURL derives the websocket endpoint from the server URL
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.New("server URL must use http or https")
	}
	u.Path += "/ws"
	return u.String(), nil
}

// playerName picks the explicit name or falls back to the configured one
func (c *Config) playerName(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if c.Player != "" {
		return c.Player, nil
	}
	return "", errors.New("a player name is required (--name or " + EnvPlayer + ")")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
