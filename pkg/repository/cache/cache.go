package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stenolab/steno/pkg/domain/interfaces"
)

const (
	// DefaultTTL bounds how long a memoized result stays equivalent to a
	// fresh computation. Retries of the same finished meeting land well
	// inside this window.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxEntries caps the in-process cache size
	DefaultMaxEntries = 4096

	keyPrefix = "transcript:"
)

// Key derives the content-addressed cache key for a transcript. Equal
// transcripts always map to the same key, so a retried request hits the
// entry written by the first attempt.
func Key(transcript string) string {
	sum := sha256.Sum256([]byte(transcript))
	return keyPrefix + hex.EncodeToString(sum[:])
}

type Cache struct {
	lru *expirable.LRU[string, []byte]
	ttl time.Duration
}

var _ interfaces.ResultCache = &Cache{}

type Option func(*options)

type options struct {
	ttl        time.Duration
	maxEntries int
}

// WithTTL overrides the entry lifetime. The TTL is fixed per store, not
// per entry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithMaxEntries overrides the entry cap
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

func New(opts ...Option) *Cache {
	o := &options{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Cache{
		lru: expirable.NewLRU[string, []byte](o.maxEntries, nil, o.ttl),
		ttl: o.ttl,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	value, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	cloned := make([]byte, len(value))
	copy(cloned, value)
	return cloned, true
}

func (c *Cache) Set(_ context.Context, key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	c.lru.Add(key, stored)
}

func (c *Cache) Exists(_ context.Context, key string) bool {
	return c.lru.Contains(key)
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}
