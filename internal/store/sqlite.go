package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/openinfo/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed db/schema.sql
var schema string

// ErrNotFound is returned by Get for an unknown fingerprint
var ErrNotFound = errors.New("record not found")

// RecordStore persists records keyed by their fingerprint
type RecordStore interface {
	Upsert(ctx context.Context, record *model.Record) error
	Get(ctx context.Context, fp model.Fingerprint) (*model.Record, error)
	Each(ctx context.Context, fn func(*model.Record) error) error
}

// SQLiteStore stores each record as a JSON document in one table
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: ":memory:" databases are per-connection and the
	// pipeline never writes concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces the record. CreatedAt survives replacement and
// UpdatedAt is refreshed; both are written back into record.
func (s *SQLiteStore) Upsert(ctx context.Context, record *model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	var createdAt string
	err = tx.QueryRowContext(ctx,
		`select created_at from information_responses where division_id = ? and id = ?`,
		record.DivisionID, record.ID,
	).Scan(&createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		record.CreatedAt = now
	case err != nil:
		return fmt.Errorf("lookup %s: %w", record, err)
	default:
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return fmt.Errorf("parse created_at for %s: %w", record, err)
		}
	}
	record.UpdatedAt = now

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", record, err)
	}

	_, err = tx.ExecContext(ctx, `
		insert into information_responses (division_id, id, identifier, date, data, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?, ?)
		on conflict (division_id, id) do update set
			identifier = excluded.identifier,
			date = excluded.date,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		record.DivisionID, record.ID, record.Identifier, record.Date, string(data),
		record.CreatedAt.Format(time.RFC3339Nano), record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", record, err)
	}

	return tx.Commit()
}

// Get loads one record
func (s *SQLiteStore) Get(ctx context.Context, fp model.Fingerprint) (*model.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`select data from information_responses where division_id = ? and id = ?`,
		fp.DivisionID, fp.ID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", fp.DivisionID, fp.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", fp.ID, err)
	}
	return decode(data)
}

// Fingerprints returns every stored key in publication order
func (s *SQLiteStore) Fingerprints(ctx context.Context) ([]model.Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`select division_id, id from information_responses order by date, id`)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fps []model.Fingerprint
	for rows.Next() {
		var fp model.Fingerprint
		if err := rows.Scan(&fp.DivisionID, &fp.ID); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// Each calls fn for every stored record. It iterates a snapshot of keys
// rather than an open cursor, so fn may upsert the record it receives.
func (s *SQLiteStore) Each(ctx context.Context, fn func(*model.Record) error) error {
	fps, err := s.Fingerprints(ctx)
	if err != nil {
		return err
	}
	for _, fp := range fps {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := s.Get(ctx, fp)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit records, newest publication date first. A
// non-positive limit returns everything.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*model.Record, error) {
	query := `select data from information_responses order by date desc, id desc`
	var args []interface{}
	if limit > 0 {
		query += ` limit ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*model.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		record, err := decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func decode(data string) (*model.Record, error) {
	var record model.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &record, nil
}
