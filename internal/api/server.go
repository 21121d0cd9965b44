// Package api serves the polled, read-only HTTP interface consumed by the
// dashboard. It never mutates inventory state: counts change only through
// the engine's frame pipeline.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/ledger"
	"github.com/shelfvision/stockwatch/internal/snapshot"
	"github.com/shelfvision/stockwatch/internal/stats"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxListLimit caps client-supplied page sizes.
const maxListLimit = 1000

type Server struct {
	cfg       *config.TuningConfig
	snapshots snapshot.Store
	ledger    ledger.Ledger
	stats     *stats.FrameStats
}

func NewServer(cfg *config.TuningConfig, snapshots snapshot.Store, lg ledger.Ledger, frameStat *stats.FrameStats) *Server {
	return &Server{
		cfg:       cfg,
		snapshots: snapshots,
		ledger:    lg,
		stats:     frameStat,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. Mount under /api; the chart endpoint
// registers its own /debug path on the outer mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", s.listInventory)
	mux.HandleFunc("/inventory/", s.getInventoryRecord)
	mux.HandleFunc("/transactions", s.listTransactions)
	mux.HandleFunc("/alerts", s.listAlerts)
	mux.HandleFunc("/stats", s.showStats)
	mux.HandleFunc("/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	records, err := s.snapshots.ListAll(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list inventory: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write inventory")
		return
	}
}

func (s *Server) getInventoryRecord(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sku := strings.TrimPrefix(r.URL.Path, "/inventory/")
	if sku == "" || strings.Contains(sku, "/") {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid SKU path")
		return
	}

	rec, err := s.snapshots.Get(r.Context(), vision.SKU(sku))
	if errors.Is(err, snapshot.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Unknown SKU %q", sku))
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to get inventory record: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(rec); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write record")
		return
	}
}

// parseListParams reads the since/limit pair used by both ledger listings.
func (s *Server) parseListParams(r *http.Request, sinceParam string) (since int64, limit int, err error) {
	if v := r.URL.Query().Get(sinceParam); v != "" {
		since, err = strconv.ParseInt(v, 10, 64)
		if err != nil || since < 0 {
			return 0, 0, fmt.Errorf("invalid '%s' parameter", sinceParam)
		}
	}
	limit = ledger.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			return 0, 0, fmt.Errorf("invalid 'limit' parameter")
		}
	}
	return since, limit, nil
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	since, limit, err := s.parseListParams(r, "since_seq")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	txns, err := s.ledger.ListSince(r.Context(), since, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list transactions: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(txns); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write transactions")
		return
	}
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	since, limit, err := s.parseListParams(r, "since_id")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.ledger.ListAlertsSince(r.Context(), since, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list alerts: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(events); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write alerts")
		return
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.stats == nil {
		s.writeJSONError(w, http.StatusNotFound, "Statistics not enabled")
		return
	}

	if err := json.NewEncoder(w).Encode(s.stats.Snapshot()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	effective := map[string]interface{}{
		"match_iou_threshold": s.cfg.GetMatchIoUThreshold(),
		"max_missed_frames":   s.cfg.GetMaxMissedFrames(),
		"min_threshold":       s.cfg.GetMinThreshold(),
		"critical_threshold":  s.cfg.GetCriticalThreshold(),
		"frame_interval":      s.cfg.GetFrameInterval().String(),
		"change_probability":  s.cfg.GetChangeProbability(),
		"skus":                s.cfg.SKUs,
	}

	if err := json.NewEncoder(w).Encode(effective); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

// Healthz is a plain liveness endpoint for the outer mux.
func Healthz(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "ok\n")
}
