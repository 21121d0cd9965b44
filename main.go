package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shelfvision/stockwatch/internal/api"
	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/db"
	"github.com/shelfvision/stockwatch/internal/engine"
	"github.com/shelfvision/stockwatch/internal/feed"
	"github.com/shelfvision/stockwatch/internal/ledger"
	"github.com/shelfvision/stockwatch/internal/snapshot"
	"github.com/shelfvision/stockwatch/internal/stats"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "inventory.db", "SQLite database path")
	configPath = flag.String("config", "config/tuning.defaults.json", "Tuning config JSON path")
	devMode    = flag.Bool("dev", false, "Run with in-memory storage")
	seed       = flag.Int64("seed", 0, "Feed RNG seed (0 = time-based)")
	migrateDir = flag.String("migrations", "", "Run migrations from this directory and exit")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		lg    ledger.Ledger
		store snapshot.Store
	)
	if *devMode {
		lg = ledger.NewMemoryLedger()
		store = snapshot.NewMemoryStore()
	} else {
		database, err := db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()

		if *migrateDir != "" {
			if err := database.MigrateUp(*migrateDir); err != nil {
				log.Fatalf("migrations failed: %v", err)
			}
			log.Print("migrations applied")
			return
		}

		lg = ledger.NewSQLiteLedger(database.DB)
		store = snapshot.NewSQLiteStore(database.DB)
	}

	frameStats := stats.NewFrameStats()
	eng := engine.New(cfg, lg, store, frameStats)
	engine.SetLogWriters(log.Writer(), log.Writer(), nil)

	if err := eng.Bootstrap(context.Background(), time.Now().UnixNano()); err != nil {
		log.Fatalf("failed to bootstrap engine: %v", err)
	}
	log.Printf("engine run %s tracking %d SKUs", eng.RunID(), len(cfg.SKUs))

	feedSeed := *seed
	if feedSeed == 0 {
		feedSeed = time.Now().UnixNano()
	}
	sim := feed.NewSimulator(cfg, feedSeed)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame loop: one frame is fully associated, diffed, and committed
	// before the next begins.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.GetFrameInterval())
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				frame := sim.Next(now)
				if _, err := eng.ProcessFrame(ctx, frame); err != nil {
					if errors.Is(err, engine.ErrFrameOutOfOrder) {
						log.Printf("dropped frame %d: %v", frame.FrameID, err)
						continue
					}
					log.Printf("frame %d failed: %v", frame.FrameID, err)
				}
			case <-ctx.Done():
				log.Print("frame loop terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(cfg, store, lg, frameStats)

		mux := http.NewServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiServer.ServeMux()))
		mux.HandleFunc("/debug/charts/stock", apiServer.HandleStockChart)
		mux.HandleFunc("/healthz", api.Healthz)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
