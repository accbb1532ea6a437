package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// schemaSQL is the single source of truth for the SQLite schema.
// It is embedded at compile time from schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists snapshots in a local SQLite file. SQLite supports
// one writer at a time, so writes run on a single connection serialized by
// a mutex.
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// OpenSQLite opens the snapshot database with WAL mode enabled, creating
// the file and schema when missing.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	s := &SQLiteStore{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Connected to SQLite snapshot store: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// SaveSnapshot records a dataset load and its normalized stations in one
// transaction. Content hashes are UNIQUE; callers are expected to check
// SnapshotByHash first and skip saves for already-known content.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot, stations []schema.Station) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.ImportedAtUTC.IsZero() {
		snap.ImportedAtUTC = time.Now().UTC()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (
			snapshot_id, source_name, content_sha256, encoding,
			name_column, line_column, latitude_column, longitude_column,
			order_column, embedded_coords, station_count, dropped_rows,
			imported_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID, snap.SourceName, snap.SHA256, snap.Encoding,
		snap.Mapping.Name, snap.Mapping.Line, snap.Mapping.Latitude, snap.Mapping.Longitude,
		snap.Mapping.Order, boolToInt(snap.Mapping.Embedded), snap.Stations, snap.Dropped,
		snap.ImportedAtUTC.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_stations (
			snapshot_id, row_index, name, line, latitude, longitude, sort_order
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, snap.ID, st.Row, st.Name, st.Line, st.Latitude, st.Longitude, st.Order); err != nil {
			return fmt.Errorf("failed to insert station row %d: %w", st.Row, err)
		}
	}

	return tx.Commit()
}

const snapshotColumns = `
	snapshot_id, source_name, content_sha256, encoding,
	name_column, line_column, latitude_column, longitude_column,
	order_column, embedded_coords, station_count, dropped_rows,
	imported_at_utc
`

// SnapshotByHash looks a snapshot up by the sha256 of its source content.
func (s *SQLiteStore) SnapshotByHash(ctx context.Context, sha256 string) (*Snapshot, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE content_sha256 = ?`, sha256)
	return scanSQLiteSnapshot(row)
}

// LatestSnapshot returns the most recently imported snapshot.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY imported_at_utc DESC, snapshot_id LIMIT 1`)
	return scanSQLiteSnapshot(row)
}

// ListSnapshots returns snapshots newest first. A non-positive limit means
// the default of 20.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY imported_at_utc DESC, snapshot_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSQLiteSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// StationsBySnapshot returns the normalized stations stored under a
// snapshot, in source row order.
func (s *SQLiteStore) StationsBySnapshot(ctx context.Context, snapshotID string) ([]schema.Station, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT row_index, name, line, latitude, longitude, sort_order
		FROM snapshot_stations
		WHERE snapshot_id = ?
		ORDER BY row_index
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []schema.Station
	for rows.Next() {
		var st schema.Station
		var order sql.NullFloat64
		if err := rows.Scan(&st.Row, &st.Name, &st.Line, &st.Latitude, &st.Longitude, &order); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		if order.Valid {
			v := order.Float64
			st.Order = &v
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var embedded int
	var imported string

	err := row.Scan(
		&snap.ID, &snap.SourceName, &snap.SHA256, &snap.Encoding,
		&snap.Mapping.Name, &snap.Mapping.Line, &snap.Mapping.Latitude, &snap.Mapping.Longitude,
		&snap.Mapping.Order, &embedded, &snap.Stations, &snap.Dropped,
		&imported,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap.Mapping.Embedded = embedded != 0
	snap.ImportedAtUTC, err = time.Parse(time.RFC3339, imported)
	if err != nil {
		return nil, fmt.Errorf("failed to parse imported_at_utc %q: %w", imported, err)
	}
	return &snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
