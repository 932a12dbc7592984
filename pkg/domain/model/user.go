package model

import (
	"time"

	"github.com/stenolab/steno/pkg/domain/types"
)

// User carries the per-user settings the pipelines consult. The account
// itself is managed elsewhere; this is a read-mostly projection.
type User struct {
	ID            types.UserID
	Email         string `masq:"secret"`
	EmailsEnabled bool
	MemoryEnabled bool
	CreatedAt     time.Time
}
