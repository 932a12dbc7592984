package types

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned by repositories when a record does not exist.
// Backend packages re-export it so callers can match with errors.Is
// regardless of the configured backend.
var ErrNotFound = goerr.New("record not found")
