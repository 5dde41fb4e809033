package usecase

import "time"

const (
	// DefaultCommandTimeout bounds a single movement command's transaction,
	// so a stuck command cannot hold balance row locks indefinitely.
	DefaultCommandTimeout = 10 * time.Second

	// ReferenceCacheTTL is the default lifetime of cached item and
	// warehouse lookups.
	ReferenceCacheTTL = 5 * time.Minute
)
