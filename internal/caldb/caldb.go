// Package caldb keeps the local calibration database: the master calibrations produced by a run and the bad pixel
// maps found among the raw frames, persisted in a SQLite file so that later runs reuse them.
package caldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyInitialized is returned by Init when the database holds a previous run's schema.
	ErrAlreadyInitialized = errors.New("calibration database already initialized")
	ErrNotInitialized     = errors.New("calibration database not initialized")
	ErrNotRegistered      = errors.New("calibration not registered")
)

// Kinds of calibration, derived from the product file name.
const (
	KindBias     = "processed_bias"
	KindFlat     = "processed_flat"
	KindArc      = "processed_arc"
	KindStandard = "processed_standard"
	KindBPM      = "processed_bpm"
	KindUnknown  = "unknown"
)

// Record is one registered calibration file.
type Record struct {
	RegisteredAt time.Time
	ID           string
	Path         string
	Kind         string
}

// Service is the calibration database lifecycle.
type Service interface {
	Init(ctx context.Context) error
	Add(ctx context.Context, path string) error
	Remove(ctx context.Context, path string) error
	ListFiles(ctx context.Context) ([]Record, error)
}

// KindFromPath guesses the calibration kind from the product suffix.
func KindFromPath(path string) string {
	base := strings.ToLower(filepath.Base(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch {
	case strings.HasPrefix(stem, "bpm") || strings.HasSuffix(stem, "_bpm"):
		return KindBPM
	case strings.HasSuffix(stem, "_bias"):
		return KindBias
	case strings.HasSuffix(stem, "_flat"):
		return KindFlat
	case strings.HasSuffix(stem, "_arc"):
		return KindArc
	case strings.HasSuffix(stem, "_standard"):
		return KindStandard
	default:
		return KindUnknown
	}
}

const schema = `
CREATE TABLE calibrations (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	registered_at DATETIME NOT NULL
);
CREATE INDEX calibrations_kind ON calibrations (kind);
`

// Database is a Service backed by a SQLite file.
type Database struct {
	db   *sql.DB
	now  func() time.Time
	path string
}

// Open opens, without initialising, the database at path. The file is created on first use.
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open calibration database %s", path)
	}

	db.SetMaxOpenConns(1)

	return &Database{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) initialized(ctx context.Context) (bool, error) {
	var count int

	err := d.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'calibrations'`).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "unable to inspect schema")
	}

	return count > 0, nil
}

// Init creates the schema. It returns ErrAlreadyInitialized, and changes nothing, if the schema exists.
func (d *Database) Init(ctx context.Context) error {
	ok, err := d.initialized(ctx)
	if err != nil {
		return err
	}

	if ok {
		return ErrAlreadyInitialized
	}

	_, err = d.db.ExecContext(ctx, schema)
	if err != nil {
		return errors.Wrap(err, "unable to create schema")
	}

	return nil
}

func (d *Database) ensureInitialized(ctx context.Context) error {
	ok, err := d.initialized(ctx)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotInitialized
	}

	return nil
}

// Add registers path. Adding a path twice refreshes its registration time.
func (d *Database) Add(ctx context.Context, path string) error {
	err := d.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", path)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO calibrations (id, path, kind, registered_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, registered_at = excluded.registered_at`,
		uuid.NewString(), abs, KindFromPath(abs), d.now().UTC())
	if err != nil {
		return errors.Wrapf(err, "unable to add %s", abs)
	}

	return nil
}

// Remove unregisters path. The file on disk is left alone.
func (d *Database) Remove(ctx context.Context, path string) error {
	err := d.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", path)
	}

	res, err := d.db.ExecContext(ctx, `DELETE FROM calibrations WHERE path = ?`, abs)
	if err != nil {
		return errors.Wrapf(err, "unable to remove %s", abs)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to count removed rows")
	}

	if affected == 0 {
		return errors.Wrap(ErrNotRegistered, abs)
	}

	return nil
}

// ListFiles returns every registration ordered by path.
func (d *Database) ListFiles(ctx context.Context) ([]Record, error) {
	err := d.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `SELECT id, path, kind, registered_at FROM calibrations ORDER BY path`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list calibrations")
	}
	defer rows.Close()

	records := make([]Record, 0)

	for rows.Next() {
		var rec Record

		err := rows.Scan(&rec.ID, &rec.Path, &rec.Kind, &rec.RegisteredAt)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan calibration")
		}

		records = append(records, rec)
	}

	return records, errors.Wrap(rows.Err(), "unable to iterate calibrations")
}

var _ Service = (*Database)(nil)
