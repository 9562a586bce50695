// Package util contains small helpers shared across the server.
package util

import (
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
)

// SetLogLevel applies the configured log verbosity to the global logger.
func SetLogLevel(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// TruncateID shortens an identifier for log output, keeping the first eight
// characters the way the upstream web client displays thread ids.
func TruncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
