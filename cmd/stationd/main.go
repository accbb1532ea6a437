package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/cjscld94-cyber/qwer/internal/config"
	"github.com/cjscld94-cyber/qwer/internal/explorer"
	"github.com/cjscld94-cyber/qwer/internal/handlers"
	"github.com/cjscld94-cyber/qwer/internal/store"
)

func main() {
	log.Println("Starting station explorer...")

	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()
	log.Printf("Config loaded: dataset=%s, port=%d", cfg.DatasetPath, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Snapshot Store
	// ═══════════════════════════════════════════════════════
	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer st.Close()

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Initial Dataset Load
	// ═══════════════════════════════════════════════════════
	ex := explorer.New(cfg, st)
	if err := ex.Load(ctx); err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	snap := ex.Current()
	log.Printf("Dataset ready: %d stations across %d lines (%d rows dropped)",
		len(snap.Stations), len(snap.Colors), snap.Dropped)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Dataset Watcher
	// ═══════════════════════════════════════════════════════
	if cfg.WatchDataset {
		go func() {
			if err := ex.Watch(ctx); err != nil {
				log.Printf("Warning: dataset watcher exited: %v", err)
			}
		}()
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP Server
	// ═══════════════════════════════════════════════════════
	stationHandler := handlers.NewStationHandler(ex)
	lineHandler := handlers.NewLineHandler(ex)
	healthHandler := handlers.NewHealthHandler(ex, st)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.GetHealth)
	r.Get("/api/dataset", stationHandler.GetDataset)
	r.Get("/api/stations", stationHandler.GetStations)
	r.Get("/api/stations/nearest", stationHandler.GetNearest)
	r.Get("/api/lines", lineHandler.GetLines)
	r.Get("/api/lines/{label}/path", lineHandler.GetLinePath)
	r.Get("/api/stats", stationHandler.GetStats)
	r.Get("/api/export.csv", stationHandler.ExportCSV)

	log.Printf("Station explorer starting on :%d", cfg.Port)
	log.Println("Dataset endpoints:")
	log.Println("  GET /api/dataset")
	log.Println("  GET /api/stations")
	log.Println("  GET /api/stations/nearest")
	log.Println("  GET /api/stats")
	log.Println("  GET /api/export.csv")
	log.Println("Line endpoints:")
	log.Println("  GET /api/lines")
	log.Println("  GET /api/lines/{label}/path")
	log.Println("Health:")
	log.Println("  GET /health (with store check)")

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful Shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}
