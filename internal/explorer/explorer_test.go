package explorer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cjscld94-cyber/qwer/internal/config"
	"github.com/cjscld94-cyber/qwer/internal/schema"
	"github.com/cjscld94-cyber/qwer/internal/store"
)

const threeStationCSV = "역명,노선명,위도,경도,order\n" +
	"서울역,1호선,37.5547,126.9706,1\n" +
	"시청,1호선,37.5657,126.9769,2\n" +
	"강남,2호선,37.4979,127.0276,1\n"

const fourStationCSV = threeStationCSV +
	"역삼,2호선,37.5006,127.0364,2\n"

// fakeStore is an in-memory Store for pipeline tests. It mirrors the real
// backends' behavior where the explorer depends on it: content-unique saves,
// ErrNotFound lookups, newest-first listing.
type fakeStore struct {
	mu        sync.Mutex
	snapshots []store.Snapshot
	stations  map[string][]schema.Station
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stations: make(map[string][]schema.Station)}
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, snap *store.Snapshot, stations []schema.Station) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.snapshots {
		if existing.SHA256 == snap.SHA256 {
			return fmt.Errorf("duplicate content %s", snap.SHA256)
		}
	}
	if snap.ID == "" {
		snap.ID = fmt.Sprintf("snap-%d", len(f.snapshots)+1)
	}
	if snap.ImportedAtUTC.IsZero() {
		snap.ImportedAtUTC = time.Now().UTC()
	}
	f.snapshots = append(f.snapshots, *snap)
	f.stations[snap.ID] = append([]schema.Station(nil), stations...)
	f.saves++
	return nil
}

func (f *fakeStore) SnapshotByHash(ctx context.Context, sha string) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.snapshots {
		if f.snapshots[i].SHA256 == sha {
			snap := f.snapshots[i]
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) LatestSnapshot(ctx context.Context) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil, store.ErrNotFound
	}
	snap := f.snapshots[len(f.snapshots)-1]
	return &snap, nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context, limit int) ([]store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Snapshot, 0, len(f.snapshots))
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, f.snapshots[i])
	}
	return out, nil
}

func (f *fakeStore) StationsBySnapshot(ctx context.Context, id string) ([]schema.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stations, ok := f.stations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]schema.Station(nil), stations...), nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

func writeDataset(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
}

func newTestExplorer(t *testing.T, content string) (*Explorer, *fakeStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.csv")
	writeDataset(t, path, content)
	fs := newFakeStore()
	cfg := &config.Config{DatasetPath: path, ReloadDebounce: 50 * time.Millisecond}
	return New(cfg, fs), fs, path
}

// TestLoadBuildsSnapshot checks the whole pipeline: file to normalized
// stations to derived paths and colors, with the load recorded in the store.
func TestLoadBuildsSnapshot(t *testing.T) {
	ex, fs, _ := newTestExplorer(t, threeStationCSV)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := ex.Current()
	if snap == nil {
		t.Fatal("expected a snapshot after Load")
	}
	if len(snap.Stations) != 3 {
		t.Errorf("expected 3 stations, got %d", len(snap.Stations))
	}
	if snap.Encoding != "utf-8" {
		t.Errorf("expected utf-8 encoding, got %q", snap.Encoding)
	}
	if !snap.HasOrder {
		t.Error("expected HasOrder with an order column present")
	}
	if snap.Mapping.Latitude != "위도" || snap.Mapping.Longitude != "경도" {
		t.Errorf("unexpected coordinate mapping: %+v", snap.Mapping)
	}
	if snap.FromStore {
		t.Error("snapshot should not be marked FromStore")
	}

	if got := len(snap.Paths["1호선"]); got != 2 {
		t.Errorf("expected a 2-point path for 1호선, got %d points", got)
	}
	if _, ok := snap.Paths["2호선"]; ok {
		t.Error("single-station line should have no path")
	}
	if _, ok := snap.Colors["2호선"]; !ok {
		t.Error("single-station line should still get a color")
	}

	if fs.saves != 1 {
		t.Errorf("expected 1 recorded snapshot, got %d", fs.saves)
	}
	if snap.SnapshotID != "snap-1" {
		t.Errorf("expected snapshot ID snap-1, got %q", snap.SnapshotID)
	}
}

// TestLoadSkipsRecordingKnownContent checks that reloading identical file
// content does not create a second store snapshot.
func TestLoadSkipsRecordingKnownContent(t *testing.T) {
	ex, fs, _ := newTestExplorer(t, threeStationCSV)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ex.Reload(context.Background())

	if fs.saves != 1 {
		t.Errorf("expected 1 recorded snapshot after identical reload, got %d", fs.saves)
	}
	if got := ex.Current().SnapshotID; got != "snap-1" {
		t.Errorf("expected reload to reuse snap-1, got %q", got)
	}
}

// TestReloadSwapsSnapshot checks that changed file content replaces the
// served snapshot and is recorded as new content.
func TestReloadSwapsSnapshot(t *testing.T) {
	ex, fs, path := newTestExplorer(t, threeStationCSV)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeDataset(t, path, fourStationCSV)
	ex.Reload(context.Background())

	snap := ex.Current()
	if len(snap.Stations) != 4 {
		t.Fatalf("expected 4 stations after reload, got %d", len(snap.Stations))
	}
	if got := len(snap.Paths["2호선"]); got != 2 {
		t.Errorf("expected 2호선 path after reload, got %d points", got)
	}
	if fs.saves != 2 {
		t.Errorf("expected 2 recorded snapshots, got %d", fs.saves)
	}
}

// TestReloadKeepsPreviousOnFailure checks that a broken replacement file
// leaves the in-memory snapshot untouched.
func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	ex, _, path := newTestExplorer(t, threeStationCSV)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	before := ex.Current()

	writeDataset(t, path, "역명,staff\n서울역,yes\n")
	ex.Reload(context.Background())

	after := ex.Current()
	if after != before {
		t.Error("failed reload should keep the previous snapshot")
	}
	if len(after.Stations) != 3 {
		t.Errorf("expected 3 stations preserved, got %d", len(after.Stations))
	}
}

// TestLoadFallsBackToStore checks that a missing dataset file is survivable
// when the store holds a previous snapshot.
func TestLoadFallsBackToStore(t *testing.T) {
	fs := newFakeStore()
	seeded := &store.Snapshot{
		SourceName: "seoul.csv",
		SHA256:     "abc123",
		Encoding:   "utf-8",
		Mapping:    schema.Mapping{Name: "역명", Line: "노선명", Latitude: "위도", Longitude: "경도"},
		Stations:   2,
		Dropped:    1,
	}
	stations := []schema.Station{
		{Name: "서울역", Line: "1호선", Latitude: 37.5547, Longitude: 126.9706, Row: 0},
		{Name: "시청", Line: "1호선", Latitude: 37.5657, Longitude: 126.9769, Row: 1},
	}
	if err := fs.SaveSnapshot(context.Background(), seeded, stations); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	cfg := &config.Config{DatasetPath: filepath.Join(t.TempDir(), "missing.csv")}
	ex := New(cfg, fs)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load should fall back to the store, got: %v", err)
	}

	snap := ex.Current()
	if !snap.FromStore {
		t.Error("expected snapshot to be marked FromStore")
	}
	if snap.SourceName != "seoul.csv" || snap.SnapshotID != "snap-1" {
		t.Errorf("unexpected restored identity: %q / %q", snap.SourceName, snap.SnapshotID)
	}
	if len(snap.Stations) != 2 {
		t.Fatalf("expected 2 restored stations, got %d", len(snap.Stations))
	}
	if snap.Dropped != 1 {
		t.Errorf("expected restored dropped count 1, got %d", snap.Dropped)
	}
	if got := len(snap.Paths["1호선"]); got != 2 {
		t.Errorf("expected paths rebuilt from restored stations, got %d points", got)
	}
}

// TestLoadMissingCoordinatesIsFatal checks that a readable dataset with no
// coordinate columns fails startup even when a stored fallback exists. The
// file is present but wrong, and silently serving stale data would hide
// that.
func TestLoadMissingCoordinatesIsFatal(t *testing.T) {
	ex, fs, path := newTestExplorer(t, threeStationCSV)
	seedViaLoad(t, ex)

	writeDataset(t, path, "역명,staff\n서울역,yes\n")
	fresh := New(&config.Config{DatasetPath: path}, fs)

	err := fresh.Load(context.Background())
	var missing *schema.MissingCoordinatesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingCoordinatesError, got %v", err)
	}
	if fresh.Current() != nil {
		t.Error("no snapshot should be published on a fatal load")
	}
}

// TestLoadFailsWithoutFileOrStore checks the startup error when neither the
// file nor the store can supply a dataset.
func TestLoadFailsWithoutFileOrStore(t *testing.T) {
	cfg := &config.Config{DatasetPath: filepath.Join(t.TempDir(), "missing.csv")}
	ex := New(cfg, newFakeStore())

	if err := ex.Load(context.Background()); err == nil {
		t.Fatal("expected an error with no file and an empty store")
	}
	if ex.Current() != nil {
		t.Error("no snapshot should be published on a failed load")
	}
}

// TestWatchReloadsOnChange exercises the fsnotify path end to end: write the
// file, wait out the debounce, observe the swapped snapshot.
func TestWatchReloadsOnChange(t *testing.T) {
	ex, _, path := newTestExplorer(t, threeStationCSV)

	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := ex.Watch(ctx); err != nil {
			t.Errorf("Watch failed: %v", err)
		}
	}()

	// Give the watcher time to register before touching the file.
	time.Sleep(200 * time.Millisecond)
	writeDataset(t, path, fourStationCSV)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := ex.Current(); len(snap.Stations) == 4 {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("snapshot was not reloaded, still %d stations", len(ex.Current().Stations))
}

func seedViaLoad(t *testing.T, ex *Explorer) {
	t.Helper()
	if err := ex.Load(context.Background()); err != nil {
		t.Fatalf("seed load failed: %v", err)
	}
}
