package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id      TEXT PRIMARY KEY,
	source_name      TEXT NOT NULL,
	content_sha256   TEXT NOT NULL UNIQUE,
	encoding         TEXT NOT NULL,
	name_column      TEXT NOT NULL DEFAULT '',
	line_column      TEXT NOT NULL DEFAULT '',
	latitude_column  TEXT NOT NULL DEFAULT '',
	longitude_column TEXT NOT NULL DEFAULT '',
	order_column     TEXT NOT NULL DEFAULT '',
	embedded_coords  BOOLEAN NOT NULL DEFAULT FALSE,
	station_count    INTEGER NOT NULL,
	dropped_rows     INTEGER NOT NULL,
	imported_at_utc  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_imported
	ON snapshots(imported_at_utc DESC);

CREATE TABLE IF NOT EXISTS snapshot_stations (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
	row_index   INTEGER NOT NULL,
	name        TEXT NOT NULL,
	line        TEXT NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	sort_order  DOUBLE PRECISION,
	PRIMARY KEY (snapshot_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_snapshot_stations_line
	ON snapshot_stations(snapshot_id, line);
`

// PostgresStore persists snapshots through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to Postgres and ensures the snapshot schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Connected to Postgres snapshot store")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// SaveSnapshot records a dataset load and its normalized stations in one
// transaction.
func (p *PostgresStore) SaveSnapshot(ctx context.Context, snap *Snapshot, stations []schema.Station) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.ImportedAtUTC.IsZero() {
		snap.ImportedAtUTC = time.Now().UTC()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO snapshots (
			snapshot_id, source_name, content_sha256, encoding,
			name_column, line_column, latitude_column, longitude_column,
			order_column, embedded_coords, station_count, dropped_rows,
			imported_at_utc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		snap.ID, snap.SourceName, snap.SHA256, snap.Encoding,
		snap.Mapping.Name, snap.Mapping.Line, snap.Mapping.Latitude, snap.Mapping.Longitude,
		snap.Mapping.Order, snap.Mapping.Embedded, snap.Stations, snap.Dropped,
		snap.ImportedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, st := range stations {
		_, err := tx.Exec(ctx, `
			INSERT INTO snapshot_stations (
				snapshot_id, row_index, name, line, latitude, longitude, sort_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, snap.ID, st.Row, st.Name, st.Line, st.Latitude, st.Longitude, st.Order)
		if err != nil {
			return fmt.Errorf("failed to insert station row %d: %w", st.Row, err)
		}
	}

	return tx.Commit(ctx)
}

// SnapshotByHash looks a snapshot up by the sha256 of its source content.
func (p *PostgresStore) SnapshotByHash(ctx context.Context, sha256 string) (*Snapshot, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE content_sha256 = $1`, sha256)
	return scanPostgresSnapshot(row)
}

// LatestSnapshot returns the most recently imported snapshot.
func (p *PostgresStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY imported_at_utc DESC, snapshot_id LIMIT 1`)
	return scanPostgresSnapshot(row)
}

// ListSnapshots returns snapshots newest first. A non-positive limit means
// the default of 20.
func (p *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY imported_at_utc DESC, snapshot_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanPostgresSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// StationsBySnapshot returns the normalized stations stored under a
// snapshot, in source row order.
func (p *PostgresStore) StationsBySnapshot(ctx context.Context, snapshotID string) ([]schema.Station, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT row_index, name, line, latitude, longitude, sort_order
		FROM snapshot_stations
		WHERE snapshot_id = $1
		ORDER BY row_index
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []schema.Station
	for rows.Next() {
		var st schema.Station
		var order *float64
		if err := rows.Scan(&st.Row, &st.Name, &st.Line, &st.Latitude, &st.Longitude, &order); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		st.Order = order
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func scanPostgresSnapshot(row pgx.Row) (*Snapshot, error) {
	var snap Snapshot

	err := row.Scan(
		&snap.ID, &snap.SourceName, &snap.SHA256, &snap.Encoding,
		&snap.Mapping.Name, &snap.Mapping.Line, &snap.Mapping.Latitude, &snap.Mapping.Longitude,
		&snap.Mapping.Order, &snap.Mapping.Embedded, &snap.Stations, &snap.Dropped,
		&snap.ImportedAtUTC,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap.ImportedAtUTC = snap.ImportedAtUTC.UTC()
	return &snap, nil
}
