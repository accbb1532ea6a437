// Package store persists accepted dataset loads as snapshots keyed by
// content identity (the sha256 of the source file). The explorer always
// serves from memory; the store is the durable record of what was loaded
// and when. It lets importers skip content they have already seen and gives
// the server a fallback dataset when the source file is gone.
//
// Two backends implement the same interface: SQLite for single-node setups
// and Postgres for shared ones.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one accepted dataset load.
type Snapshot struct {
	ID            string         `json:"id"`
	SourceName    string         `json:"sourceName"`
	SHA256        string         `json:"sha256"`
	Encoding      string         `json:"encoding"`
	Mapping       schema.Mapping `json:"mapping"`
	Stations      int            `json:"stations"`
	Dropped       int            `json:"dropped"`
	ImportedAtUTC time.Time      `json:"importedAtUtc"`
}

// Store is the snapshot persistence contract shared by both backends.
// SaveSnapshot assigns the snapshot an ID and import time when the caller
// left them empty.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot, stations []schema.Station) error
	SnapshotByHash(ctx context.Context, sha256 string) (*Snapshot, error)
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
	StationsBySnapshot(ctx context.Context, snapshotID string) ([]schema.Station, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open picks a backend: Postgres when databaseURL is set, otherwise the
// SQLite file at sqlitePath.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		return OpenPostgres(ctx, databaseURL)
	}
	return OpenSQLite(ctx, sqlitePath)
}
