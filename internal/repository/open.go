// Package repository selects and opens a record store backend.
package repository

import (
	"context"
	"fmt"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/repository/disk"
	"github.com/msomdec/feedline/internal/repository/sqlite"
)

// Store is an opened backend: its records plus its lifecycle.
type Store struct {
	Records domain.RecordRepository
	DB      domain.Database
}

type options struct {
	existing bool
}

// Option adjusts how Open prepares a backend.
type Option func(*options)

// Existing opens a store that must already exist and leaves it as found:
// nothing is created and no migration runs. Offline tools use it so they
// can run next to a live server.
func Existing() Option {
	return func(o *options) { o.existing = true }
}

// Open opens the named backend ("disk" or "sqlite") and migrates it.
// The caller must Close the returned Store.
func Open(ctx context.Context, backend, dataDir, dbPath string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var st Store
	switch backend {
	case "disk":
		open := disk.New
		if o.existing {
			open = disk.Open
		}
		s, err := open(dataDir)
		if err != nil {
			return nil, err
		}
		st = Store{Records: s, DB: s}
	case "sqlite":
		open := sqlite.New
		if o.existing {
			open = sqlite.OpenExisting
		}
		db, err := open(dbPath)
		if err != nil {
			return nil, err
		}
		st = Store{Records: db.Records(), DB: db}
	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", backend, domain.ErrInvalidInput)
	}

	if o.existing {
		return &st, nil
	}
	if err := st.DB.Migrate(ctx); err != nil {
		st.DB.Close()
		return nil, fmt.Errorf("migrate %s store: %w", backend, err)
	}
	return &st, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.DB.Close()
}
