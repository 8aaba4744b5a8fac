package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, plain files, etc.) owns its own layout
// and migration strategy, so the record backend stays swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
