package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stenolab/steno/pkg/repository/cache"
)

func TestKey(t *testing.T) {
	k1 := cache.Key("hello, is this recorded?")
	k2 := cache.Key("hello, is this recorded?")
	k3 := cache.Key("hello, is this recorded")

	gt.Value(t, k1).Equal(k2)
	gt.String(t, k1).NotEqual(k3)
	gt.Bool(t, strings.HasPrefix(k1, "transcript:")).True()
	// prefix plus a hex sha256 digest
	gt.Number(t, len(k1)).Equal(len("transcript:") + 64)
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := cache.New()

	key := cache.Key("some transcript")
	_, ok := c.Get(ctx, key)
	gt.Bool(t, ok).False()
	gt.Bool(t, c.Exists(ctx, key)).False()

	c.Set(ctx, key, []byte(`{"summary":"done"}`))
	gt.Bool(t, c.Exists(ctx, key)).True()

	got, ok := c.Get(ctx, key)
	gt.Bool(t, ok).True()
	gt.Value(t, string(got)).Equal(`{"summary":"done"}`)
}

func TestCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := cache.New()

	value := []byte("original")
	c.Set(ctx, "k", value)
	value[0] = 'X'

	got, ok := c.Get(ctx, "k")
	gt.Bool(t, ok).True()
	gt.Value(t, string(got)).Equal("original")

	got[0] = 'Y'
	again, ok := c.Get(ctx, "k")
	gt.Bool(t, ok).True()
	gt.Value(t, string(again)).Equal("original")
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.WithTTL(10 * time.Millisecond))
	gt.Value(t, c.TTL()).Equal(10 * time.Millisecond)

	c.Set(ctx, "k", []byte("v"))
	gt.Bool(t, c.Exists(ctx, "k")).True()

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "k")
	gt.Bool(t, ok).False()
}
