// Package explorer runs the load, normalize, derive pipeline and holds the
// snapshot the HTTP API serves from.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cjscld94-cyber/qwer/internal/config"
	"github.com/cjscld94-cyber/qwer/internal/dataset"
	"github.com/cjscld94-cyber/qwer/internal/linemap"
	"github.com/cjscld94-cyber/qwer/internal/schema"
	"github.com/cjscld94-cyber/qwer/internal/store"
)

// Snapshot is one fully derived dataset: the normalized stations plus the
// line paths and palette computed from them. Snapshots are immutable once
// published; a reload builds a new one and swaps it in.
type Snapshot struct {
	SourceName  string
	SHA256      string
	Encoding    string
	Mapping     schema.Mapping
	Stations    []schema.Station
	Dropped     int
	HasOrder    bool
	Paths       map[string][][2]float64
	Colors      map[string]linemap.Color
	LoadedAtUTC time.Time
	FromStore   bool   // restored from the store instead of the file
	SnapshotID  string // store ID once recorded or restored
}

// Explorer loads the configured dataset file and holds the current snapshot.
type Explorer struct {
	cfg   *config.Config
	store store.Store

	mu   sync.RWMutex // protects snap
	snap *Snapshot
}

// New creates an Explorer. The store must be non-nil; successful loads are
// recorded there and it doubles as the fallback source when the dataset file
// is unavailable.
func New(cfg *config.Config, st store.Store) *Explorer {
	return &Explorer{
		cfg:   cfg,
		store: st,
	}
}

// Current returns the active snapshot, or nil before the first load.
func (e *Explorer) Current() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Load runs the initial dataset load. When the file cannot be read or parsed
// it falls back to the most recent stored snapshot. A file that loads but
// resolves no coordinate columns is a dataset defect, not an availability
// problem, so that error is returned even when a fallback exists.
func (e *Explorer) Load(ctx context.Context) error {
	snap, err := e.loadFromFile(ctx)
	if err != nil {
		var missing *schema.MissingCoordinatesError
		if errors.As(err, &missing) {
			return err
		}

		restored, restoreErr := e.loadFromStore(ctx)
		if restoreErr != nil {
			return err
		}
		log.Printf("Warning: dataset %s unavailable (%v), serving stored snapshot %s", e.cfg.DatasetPath, err, restored.SnapshotID)
		e.swap(restored)
		return nil
	}

	e.swap(snap)
	return nil
}

// Reload rebuilds the snapshot from the dataset file. Any failure keeps the
// previous snapshot in place.
func (e *Explorer) Reload(ctx context.Context) {
	snap, err := e.loadFromFile(ctx)
	if err != nil {
		log.Printf("Warning: dataset reload failed, keeping previous snapshot: %v", err)
		return
	}

	e.swap(snap)
	log.Printf("Dataset reloaded: %d stations across %d lines (%d rows dropped)", len(snap.Stations), len(snap.Colors), snap.Dropped)
}

func (e *Explorer) swap(snap *Snapshot) {
	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()
}

func (e *Explorer) loadFromFile(ctx context.Context) (*Snapshot, error) {
	src, err := dataset.Load(e.cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	result, err := schema.Normalize(src.Frame)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", src.Name, err)
	}
	if result.Dropped > 0 {
		log.Printf("Warning: dropped %d of %d rows with unusable coordinates in %s", result.Dropped, src.Rows, src.Name)
	}

	snap := &Snapshot{
		SourceName:  src.Name,
		SHA256:      src.SHA256,
		Encoding:    src.Encoding,
		Mapping:     result.Mapping,
		Stations:    result.Stations,
		Dropped:     result.Dropped,
		LoadedAtUTC: src.LoadedAt,
	}
	derive(snap)

	e.record(ctx, snap)
	return snap, nil
}

// loadFromStore restores the most recent stored snapshot. Paths and colors
// are rebuilt from the stored stations; both derivations are deterministic,
// so the restored view matches what the original load served.
func (e *Explorer) loadFromStore(ctx context.Context) (*Snapshot, error) {
	latest, err := e.store.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := e.store.StationsBySnapshot(ctx, latest.ID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SourceName:  latest.SourceName,
		SHA256:      latest.SHA256,
		Encoding:    latest.Encoding,
		Mapping:     latest.Mapping,
		Stations:    stations,
		Dropped:     latest.Dropped,
		LoadedAtUTC: time.Now().UTC(),
		FromStore:   true,
		SnapshotID:  latest.ID,
	}
	derive(snap)
	return snap, nil
}

// derive fills in the computed parts of a snapshot from its stations.
func derive(snap *Snapshot) {
	snap.HasOrder = snap.Mapping.Order != ""

	groups := linemap.GroupByLine(snap.Stations)
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}

	snap.Paths = linemap.BuildPaths(snap.Stations, snap.HasOrder)
	snap.Colors = linemap.Palette(labels)
}

// record persists a successful load, skipping content the store has already
// seen. Store trouble is logged and otherwise ignored; the dashboard keeps
// serving from memory.
func (e *Explorer) record(ctx context.Context, snap *Snapshot) {
	existing, err := e.store.SnapshotByHash(ctx, snap.SHA256)
	if err == nil {
		snap.SnapshotID = existing.ID
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Warning: snapshot lookup failed: %v", err)
		return
	}

	rec := &store.Snapshot{
		SourceName: snap.SourceName,
		SHA256:     snap.SHA256,
		Encoding:   snap.Encoding,
		Mapping:    snap.Mapping,
		Stations:   len(snap.Stations),
		Dropped:    snap.Dropped,
	}
	if err := e.store.SaveSnapshot(ctx, rec, snap.Stations); err != nil {
		log.Printf("Warning: failed to record snapshot: %v", err)
		return
	}
	snap.SnapshotID = rec.ID
	log.Printf("Recorded snapshot %s for %s (%s)", rec.ID, snap.SourceName, shortHash(snap.SHA256))
}

func shortHash(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
