// replay feeds a recorded frame log (one JSON frame per line) through the
// inventory engine and reports what the run produced. Useful for tuning
// association thresholds against captured footage without a live camera.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/db"
	"github.com/shelfvision/stockwatch/internal/engine"
	"github.com/shelfvision/stockwatch/internal/ledger"
	"github.com/shelfvision/stockwatch/internal/snapshot"
	"github.com/shelfvision/stockwatch/internal/stats"
	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

func main() {
	framesPath := flag.String("frames", "", "Frame log to replay (JSONL, one frame per line)")
	dbFile := flag.String("db", "", "Write results to this SQLite database (default: in-memory only)")
	configPath := flag.String("config", "", "Tuning config JSON (default: built-in defaults)")
	verbose := flag.Bool("v", false, "Print every transaction as it commits")
	flag.Parse()

	if *framesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -frames <file.jsonl> [-db out.db] [-config tuning.json]")
		os.Exit(1)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var (
		lg    ledger.Ledger
		store snapshot.Store
	)
	if *dbFile != "" {
		database, err := db.NewDB(*dbFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()
		lg = ledger.NewSQLiteLedger(database.DB)
		store = snapshot.NewSQLiteStore(database.DB)
	} else {
		lg = ledger.NewMemoryLedger()
		store = snapshot.NewMemoryStore()
	}

	f, err := os.Open(*framesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open frame log: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	frameStats := stats.NewFrameStats()
	eng := engine.New(cfg, lg, store, frameStats)
	if err := eng.Bootstrap(ctx, 0); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	var (
		frames       int
		failed       int
		transactions int
		alerts       int
		anomalies    int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var frame vision.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: bad frame: %v\n", line, err)
			os.Exit(1)
		}

		outcome, err := eng.ProcessFrame(ctx, frame)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "frame %d: %v\n", frame.FrameID, err)
			continue
		}

		frames++
		transactions += len(outcome.Transactions)
		alerts += len(outcome.Alerts)
		for _, txn := range outcome.Transactions {
			if txn.Anomaly {
				anomalies++
			}
			if *verbose {
				fmt.Printf("seq=%d frame=%d sku=%s %s %+d -> %d (%s)\n",
					txn.Seq, txn.FrameID, txn.SKU, txn.Kind, txn.Delta,
					txn.ResultingCount, txn.SeverityAfter)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read frame log: %v\n", err)
		os.Exit(1)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list snapshots: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("replayed %d frames (%d failed): %d transactions, %d alerts, %d anomalies\n",
		frames, failed, transactions, alerts, anomalies)
	fmt.Println("final inventory:")
	for _, rec := range records {
		marker := ""
		if rec.Severity != stock.SeverityNormal {
			marker = "  <-- " + string(rec.Severity)
		}
		fmt.Printf("  %-20s %4d%s\n", rec.SKU, rec.Count, marker)
	}
}
