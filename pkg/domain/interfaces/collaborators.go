package interfaces

import (
	"context"
	"time"
)

// BlobStore stores opaque byte blobs and returns stable references.
// Put never overwrites: every call creates a new object. Delete is the
// compensation for a Put whose follow-up write failed.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}

// ResultCache memoizes expensive compute results under content-addressed
// keys. Absence always means "must compute"; presence is always
// equivalent to a fresh computation. Entries expire after the store's
// TTL and there is no other invalidation. The cache provides no
// single-flight guarantee: concurrent identical requests may both miss.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Exists(ctx context.Context, key string) bool
	TTL() time.Duration
}

// Notifier delivers user-facing notifications. Failures are reported to
// the caller but callers in pipelines must swallow them.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}
