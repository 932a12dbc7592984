package config

import (
	"time"

	"github.com/stenolab/steno/pkg/repository/cache"
	"github.com/urfave/cli/v3"
)

// Cache holds CLI flags for the result cache
type Cache struct {
	ttl        time.Duration
	maxEntries int
}

// Flags returns CLI flags for result cache configuration
func (c *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "TTL of cached summary results",
			Value:       cache.DefaultTTL,
			Sources:     cli.EnvVars("STENO_CACHE_TTL"),
			Destination: &c.ttl,
		},
		&cli.IntFlag{
			Name:        "cache-max-entries",
			Usage:       "Maximum number of cached summary results",
			Value:       cache.DefaultMaxEntries,
			Sources:     cli.EnvVars("STENO_CACHE_MAX_ENTRIES"),
			Destination: &c.maxEntries,
		},
	}
}

// Configure builds the result cache
func (c *Cache) Configure() *cache.Cache {
	return cache.New(
		cache.WithTTL(c.ttl),
		cache.WithMaxEntries(c.maxEntries),
	)
}
