package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// setupPostgres connects to the database named by DATABASE_URL. These tests
// need a reachable Postgres and are skipped without one, matching how the
// importer is exercised in CI.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	s, err := OpenPostgres(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresSnapshotRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	// Unique hash per run so reruns against a shared database don't collide
	sha := fmt.Sprintf("it-%d", time.Now().UnixNano())
	snap := testSnapshot(sha)

	if err := s.SaveSnapshot(ctx, snap, testStations()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.SnapshotByHash(ctx, sha)
	if err != nil {
		t.Fatalf("SnapshotByHash: %v", err)
	}
	if got.ID != snap.ID || got.Mapping.Latitude != "위도" {
		t.Errorf("snapshot = %+v, want round-tripped metadata", got)
	}

	stations, err := s.StationsBySnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("StationsBySnapshot: %v", err)
	}
	if len(stations) != 2 || stations[0].Name != "서울역" {
		t.Errorf("stations = %v, want the two saved rows", stations)
	}

	if _, err := s.SnapshotByHash(ctx, "never-imported"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown hash err = %v, want ErrNotFound", err)
	}
}
