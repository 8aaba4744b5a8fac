// Package disk stores one JSON record file per identity in a data
// directory. The file name is the identity itself.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/msomdec/feedline/internal/domain"
)

// staleTempAge is how old a pending write has to be before Migrate treats
// it as abandoned. Writers in other processes may still own younger files.
const staleTempAge = time.Minute

// Store implements domain.RecordRepository and domain.Database over a
// directory of JSON files.
type Store struct {
	dir string
}

// fileRecord is the on-disk layout of a record.
type fileRecord struct {
	UserName string           `json:"user_name"`
	Password string           `json:"password"`
	Messages []domain.Message `json:"messages"`
	Email    string           `json:"email,omitempty"`
	Friends  []string         `json:"friends"`
}

// New creates the data directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %w", domain.ErrStorage, err)
	}
	return &Store{dir: dir}, nil
}

// Open returns a Store over an existing data directory. Unlike New it never
// creates anything, so a mistyped path fails instead of producing an empty
// store.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: data directory %s does not exist", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("%w: stat data directory: %w", domain.ErrStorage, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Store{dir: dir}, nil
}

// Migrate removes pending writes abandoned by a crashed writer. Only dot
// files older than staleTempAge are touched; record files never start with
// a dot.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: read data directory: %w", domain.ErrStorage, err)
	}
	cutoff := time.Now().Add(-staleTempAge)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: stat temp file: %w", domain.ErrStorage, err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove stale temp file: %w", domain.ErrStorage, err)
		}
		slog.Debug("removed stale temp file", "file", e.Name())
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

func (s *Store) path(identity string) string {
	return filepath.Join(s.dir, identity)
}

func (s *Store) Exists(ctx context.Context, identity string) (bool, error) {
	if domain.ValidateIdentity(identity) != nil {
		return false, nil
	}
	info, err := os.Stat(s.path(identity))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat record: %w", domain.ErrStorage, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *Store) Create(ctx context.Context, identity, displayName, credential string) (*domain.UserRecord, error) {
	if err := domain.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	rec := &domain.UserRecord{
		Identity:    identity,
		DisplayName: displayName,
		Credential:  credential,
		Messages:    []domain.Message{},
		Follows:     []string{},
	}

	pf, err := s.pending(identity, rec)
	if err != nil {
		return nil, err
	}
	defer pf.Cleanup()

	if err := pf.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync record: %w", domain.ErrStorage, err)
	}
	// renameio only replaces, so the exclusive publish is a hard link: it
	// fails when the target exists and the record only ever appears fully
	// written.
	if err := os.Link(pf.Name(), s.path(identity)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("%w: link record: %w", domain.ErrStorage, err)
	}
	if err := s.syncDir(); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Store) Load(ctx context.Context, identity string) (*domain.UserRecord, error) {
	if domain.ValidateIdentity(identity) != nil {
		return nil, domain.ErrNotFound
	}

	data, err := os.ReadFile(s.path(identity))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: read record %s: %w", domain.ErrStorage, identity, err)
	}

	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("%w: decode record %s: %w", domain.ErrStorage, identity, err)
	}

	rec := &domain.UserRecord{
		Identity:    identity,
		DisplayName: fr.UserName,
		Credential:  fr.Password,
		Messages:    fr.Messages,
		Follows:     fr.Friends,
	}
	return rec.Clone(), nil
}

func (s *Store) Save(ctx context.Context, rec *domain.UserRecord) error {
	if err := domain.ValidateIdentity(rec.Identity); err != nil {
		return err
	}

	pf, err := s.pending(rec.Identity, rec)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: replace record %s: %w", domain.ErrStorage, rec.Identity, err)
	}
	return s.syncDir()
}

// Identities lists every stored identity in file name order.
func (s *Store) Identities(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %w", domain.ErrStorage, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// pending encodes rec into a renameio pending file next to the record it
// will become. Callers must Cleanup the returned file.
func (s *Store) pending(identity string, rec *domain.UserRecord) (*renameio.PendingFile, error) {
	c := rec.Clone()
	data, err := json.Marshal(fileRecord{
		UserName: c.DisplayName,
		Password: c.Credential,
		Messages: c.Messages,
		Email:    c.Identity,
		Friends:  c.Follows,
	})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	pf, err := renameio.NewPendingFile(s.path(identity), renameio.WithTempDir(s.dir), renameio.WithPermissions(0o644))
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", domain.ErrStorage, err)
	}
	if _, err := pf.Write(data); err != nil {
		pf.Cleanup()
		return nil, fmt.Errorf("%w: write record: %w", domain.ErrStorage, err)
	}
	return pf, nil
}

// syncDir flushes the directory entry created by a link or rename.
func (s *Store) syncDir() error {
	d, err := os.Open(s.dir)
	if err != nil {
		return fmt.Errorf("%w: open data directory: %w", domain.ErrStorage, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("%w: sync data directory: %w", domain.ErrStorage, err)
	}
	return nil
}
