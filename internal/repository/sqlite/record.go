package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/feedline/internal/domain"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// RecordRepository implements domain.RecordRepository using SQLite.
// A record is spread over the records, messages and follows tables;
// seq columns keep insertion order.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new SQLite-backed RecordRepository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db.SqlDB}
}

func (r *RecordRepository) Exists(ctx context.Context, identity string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE identity = ?)`, identity,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%w: query record exists: %w", domain.ErrStorage, err)
	}
	return ok, nil
}

func (r *RecordRepository) Create(ctx context.Context, identity, displayName, credential string) (*domain.UserRecord, error) {
	if err := domain.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO records (identity, display_name, credential, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		identity, displayName, credential, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("%w: insert record: %w", domain.ErrStorage, err)
	}

	return &domain.UserRecord{
		Identity:    identity,
		DisplayName: displayName,
		Credential:  credential,
		Messages:    []domain.Message{},
		Follows:     []string{},
	}, nil
}

func (r *RecordRepository) Load(ctx context.Context, identity string) (*domain.UserRecord, error) {
	rec := &domain.UserRecord{
		Messages: []domain.Message{},
		Follows:  []string{},
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT identity, display_name, credential FROM records WHERE identity = ?`, identity,
	).Scan(&rec.Identity, &rec.DisplayName, &rec.Credential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: query record: %w", domain.ErrStorage, err)
	}

	msgRows, err := r.db.QueryContext(ctx,
		`SELECT ts, text FROM messages WHERE identity = ? ORDER BY seq`, identity,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query messages: %w", domain.ErrStorage, err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var m domain.Message
		if err := msgRows.Scan(&m.Timestamp, &m.Text); err != nil {
			return nil, fmt.Errorf("%w: scan message: %w", domain.ErrStorage, err)
		}
		rec.Messages = append(rec.Messages, m)
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %w", domain.ErrStorage, err)
	}
	// The pool holds a single connection; release it before the next query.
	msgRows.Close()

	followRows, err := r.db.QueryContext(ctx,
		`SELECT followee FROM follows WHERE identity = ? ORDER BY seq`, identity,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query follows: %w", domain.ErrStorage, err)
	}
	defer followRows.Close()

	for followRows.Next() {
		var f string
		if err := followRows.Scan(&f); err != nil {
			return nil, fmt.Errorf("%w: scan follow: %w", domain.ErrStorage, err)
		}
		rec.Follows = append(rec.Follows, f)
	}
	if err := followRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate follows: %w", domain.ErrStorage, err)
	}

	return rec, nil
}

// Save replaces the record, its messages and its follows in one transaction.
func (r *RecordRepository) Save(ctx context.Context, rec *domain.UserRecord) error {
	if err := domain.ValidateIdentity(rec.Identity); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (identity, display_name, credential, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET
		   display_name = excluded.display_name,
		   credential = excluded.credential,
		   updated_at = excluded.updated_at`,
		rec.Identity, rec.DisplayName, rec.Credential, now, now,
	); err != nil {
		return fmt.Errorf("%w: upsert record: %w", domain.ErrStorage, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE identity = ?`, rec.Identity); err != nil {
		return fmt.Errorf("%w: clear messages: %w", domain.ErrStorage, err)
	}
	for i, m := range rec.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (identity, seq, ts, text) VALUES (?, ?, ?, ?)`,
			rec.Identity, i, m.Timestamp, m.Text,
		); err != nil {
			return fmt.Errorf("%w: insert message: %w", domain.ErrStorage, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE identity = ?`, rec.Identity); err != nil {
		return fmt.Errorf("%w: clear follows: %w", domain.ErrStorage, err)
	}
	for i, f := range rec.Follows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO follows (identity, seq, followee) VALUES (?, ?, ?)`,
			rec.Identity, i, f,
		); err != nil {
			return fmt.Errorf("%w: insert follow: %w", domain.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit record: %w", domain.ErrStorage, err)
	}
	return nil
}

func (r *RecordRepository) Identities(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT identity FROM records ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("%w: query identities: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan identity: %w", domain.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate identities: %w", domain.ErrStorage, err)
	}
	return ids, nil
}

// isUniqueConstraintError checks if the error is a SQLite primary key or
// unique constraint violation.
func isUniqueConstraintError(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
