package web

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quadify/quadify/internal/config"
)

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - daemon:    :8080 (or the config file's web.listen)
// - simulator: :8081
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
	StaticDir  string
}

// ServerConfigFrom takes the web section of the daemon config, which already
// carries its environment overrides.
func ServerConfigFrom(c config.WebConfig) ServerConfig {
	return ServerConfig{ListenAddr: c.Listen, DevMode: c.DevMode, StaticDir: c.StaticDir}
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	listenAddr := os.Getenv(config.EnvListenAddr)
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	devMode := false
	if raw := os.Getenv(config.EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", config.EnvDevMode, raw, err)
		}
		devMode = parsed
	}

	return ServerConfig{ListenAddr: listenAddr, DevMode: devMode}, nil
}
