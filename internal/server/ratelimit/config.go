package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/entity-catalog/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// FromConfig converts the application rate limit settings.
func FromConfig(cfg config.RateLimitConfig) *Config {
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    cfg.DefaultLimit,
		DefaultWindow:   cfg.DefaultWindow,
		CleanupInterval: cfg.CleanupInterval,
		Whitelist:       toSet(cfg.Whitelist),
		Blacklist:       toSet(cfg.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tree endpoints may trigger a rebuild from the database
		{Path: "/api/entities/domains-tree", Method: "GET", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/entities/entities-tree", Method: "GET", Limit: 60, Window: time.Minute, Burst: 10},

		// Entity detail lookups hit the database on every call
		{Path: "/api/entity-detail/", Method: "GET", Limit: 300, Window: time.Minute, Burst: 30},

		// Everything else uses the default limit; /health and /metrics are unlimited
	}
}

// toSet turns a list of client addresses into a lookup set, skipping blanks.
func toSet(list []string) map[string]bool {
	result := make(map[string]bool)
	for _, entry := range list {
		for _, ip := range strings.Split(entry, ",") {
			ip = strings.TrimSpace(ip)
			if ip != "" {
				result[ip] = true
			}
		}
	}
	return result
}
