package domain

import "context"

// DatasetSource loads a crash dataset from a path. Implementations live under
// internal/adapter; the cache decorator wraps any DatasetSource, so callers
// cannot tell a memoized load from a fresh one.
type DatasetSource interface {
	// Load reads, parses and normalizes the source at path. Failures are
	// always total: a non-nil error means no dataset, never a partial one.
	Load(ctx context.Context, path string) (*CrashDataset, error)
}
