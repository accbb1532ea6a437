package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/cjscld94-cyber/qwer/internal/config"
	"github.com/cjscld94-cyber/qwer/internal/dataset"
	"github.com/cjscld94-cyber/qwer/internal/export"
	"github.com/cjscld94-cyber/qwer/internal/linemap"
	"github.com/cjscld94-cyber/qwer/internal/schema"
	"github.com/cjscld94-cyber/qwer/internal/store"
)

func main() {
	input := flag.String("input", "data/station.csv", "Dataset file to import (CSV or XLSX)")
	geojsonDir := flag.String("geojson", "", "Directory for GeoJSON artifacts (skipped when empty)")
	csvOut := flag.String("csv", "", "Path for a normalized CSV export (skipped when empty)")
	xlsxOut := flag.String("xlsx", "", "Path for a normalized XLSX export (skipped when empty)")
	skipStore := flag.Bool("no-store", false, "Normalize and export without touching the snapshot store")
	listRecent := flag.Int("list", 0, "Print the N most recent snapshots and exit")
	flag.Parse()

	// Store settings come from the environment, same as the server
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
	cfg := config.Load()

	if *listRecent > 0 {
		listSnapshots(cfg, *listRecent)
		return
	}

	log.Printf("Importing %s...", *input)
	src, err := dataset.Load(*input)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded %s: %d rows, %s encoded, sha256 %.12s", src.Name, src.Rows, src.Encoding, src.SHA256)

	result, err := schema.Normalize(src.Frame)
	if err != nil {
		log.Fatalf("Failed to normalize dataset: %v", err)
	}
	if result.Dropped > 0 {
		log.Printf("Warning: dropped %d rows with unusable coordinates", result.Dropped)
	}
	log.Printf("Normalized %d stations (name=%q line=%q lat=%q lon=%q order=%q embedded=%v)",
		len(result.Stations), result.Mapping.Name, result.Mapping.Line,
		result.Mapping.Latitude, result.Mapping.Longitude, result.Mapping.Order,
		result.Mapping.Embedded)

	if !*skipStore {
		recordSnapshot(cfg, src, result)
	}

	hasOrder := result.Mapping.Order != ""

	if *geojsonDir != "" {
		paths := linemap.BuildPaths(result.Stations, hasOrder)
		manifest, err := export.WriteGeoJSON(*geojsonDir, result.Stations, paths)
		if err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
		log.Printf("SUCCESS: GeoJSON for %d lines written to %s", len(manifest.Lines), *geojsonDir)
	}

	if *csvOut != "" {
		if err := export.WriteCSVFile(*csvOut, result.Stations, hasOrder); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		log.Printf("SUCCESS: CSV written to %s", *csvOut)
	}

	if *xlsxOut != "" {
		if err := export.WriteXLSX(*xlsxOut, result.Stations, hasOrder); err != nil {
			log.Fatalf("Failed to write XLSX: %v", err)
		}
		log.Printf("SUCCESS: XLSX written to %s", *xlsxOut)
	}

	log.Println("Import complete!")
}

// recordSnapshot saves the load to the snapshot store unless its content
// hash is already there.
func recordSnapshot(cfg *config.Config, src *dataset.Source, result *schema.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer st.Close()

	existing, err := st.SnapshotByHash(ctx, src.SHA256)
	if err == nil {
		log.Printf("Content already imported as snapshot %s on %s, skipping save",
			existing.ID, existing.ImportedAtUTC.Format(time.RFC3339))
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Fatalf("Snapshot lookup failed: %v", err)
	}

	rec := &store.Snapshot{
		SourceName: src.Name,
		SHA256:     src.SHA256,
		Encoding:   src.Encoding,
		Mapping:    result.Mapping,
		Stations:   len(result.Stations),
		Dropped:    result.Dropped,
	}
	if err := st.SaveSnapshot(ctx, rec, result.Stations); err != nil {
		log.Fatalf("Failed to save snapshot: %v", err)
	}
	log.Printf("Recorded snapshot %s (%d stations)", rec.ID, rec.Stations)
}

func listSnapshots(cfg *config.Config, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) == 0 {
		log.Println("No snapshots recorded yet")
		return
	}
	log.Printf("Most recent %d snapshot(s):", len(snaps))
	for _, s := range snaps {
		log.Printf("  %s  %s  %s (%d stations, %d dropped, sha256 %.12s)",
			s.ID, s.ImportedAtUTC.Format(time.RFC3339), s.SourceName,
			s.Stations, s.Dropped, s.SHA256)
	}
}
