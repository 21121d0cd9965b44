package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/ledger"
	"github.com/shelfvision/stockwatch/internal/snapshot"
	"github.com/shelfvision/stockwatch/internal/stats"
	"github.com/shelfvision/stockwatch/internal/stock"
)

func newTestServer(t *testing.T) (*Server, *ledger.MemoryLedger, *snapshot.MemoryStore) {
	t.Helper()
	lg := ledger.NewMemoryLedger()
	store := snapshot.NewMemoryStore()
	srv := NewServer(&config.TuningConfig{}, store, lg, stats.NewFrameStats())
	return srv, lg, store
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, req)
	return rec
}

func seedInventory(t *testing.T, store *snapshot.MemoryStore) {
	t.Helper()
	records := []stock.Record{
		{SKU: "accessory-kit", Count: 3, Severity: stock.SeverityLow, MinThreshold: 5, CriticalThreshold: 2},
		{SKU: "laptop-box", Count: 10, Severity: stock.SeverityNormal, MinThreshold: 5, CriticalThreshold: 2},
	}
	for i := range records {
		if err := store.Upsert(context.Background(), &records[i]); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
}

func TestListInventory(t *testing.T) {
	srv, _, store := newTestServer(t)
	seedInventory(t, store)

	rec := doRequest(t, srv, http.MethodGet, "/inventory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var records []stock.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("%d records, want 2", len(records))
	}
	if records[0].SKU != "accessory-kit" || records[1].SKU != "laptop-box" {
		t.Errorf("record order: %s, %s", records[0].SKU, records[1].SKU)
	}
}

func TestGetInventoryRecord(t *testing.T) {
	srv, _, store := newTestServer(t)
	seedInventory(t, store)

	rec := doRequest(t, srv, http.MethodGet, "/inventory/laptop-box")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got stock.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.SKU != "laptop-box" || got.Count != 10 {
		t.Errorf("record = %+v", got)
	}
}

func TestGetInventoryRecordNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/inventory/no-such-sku")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no-such-sku") {
		t.Errorf("error body %q does not name the SKU", rec.Body.String())
	}
}

func TestGetInventoryRecordBadPath(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, target := range []string{"/inventory/", "/inventory/a/b"} {
		rec := doRequest(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestListTransactions(t *testing.T) {
	srv, lg, _ := newTestServer(t)

	for i := 0; i < 5; i++ {
		if _, err := lg.Append(context.Background(), &stock.Transaction{
			RunID: "run-1", FrameID: int64(i + 1), SKU: "laptop-box",
			Delta: 1, Kind: stock.KindAdd, ResultingCount: i + 1,
			SeverityAfter: stock.SeverityNormal,
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/transactions?since_seq=2&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var txns []stock.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txns); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(txns) != 2 || txns[0].Seq != 3 || txns[1].Seq != 4 {
		t.Errorf("page = %+v, want seqs 3, 4", txns)
	}
}

func TestListTransactionsBadParams(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, target := range []string{
		"/transactions?since_seq=abc",
		"/transactions?since_seq=-1",
		"/transactions?limit=0",
		"/transactions?limit=100000",
	} {
		rec := doRequest(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestListAlerts(t *testing.T) {
	srv, lg, _ := newTestServer(t)

	events := []stock.AlertEvent{
		{RunID: "run-1", FrameID: 2, SKU: "laptop-box", OldSeverity: stock.SeverityNormal, NewSeverity: stock.SeverityLow},
		{RunID: "run-1", FrameID: 3, SKU: "laptop-box", OldSeverity: stock.SeverityLow, NewSeverity: stock.SeverityCritical},
	}
	for i := range events {
		if _, err := lg.AppendAlert(context.Background(), &events[i]); err != nil {
			t.Fatalf("append alert: %v", err)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/alerts?since_id=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got []stock.AlertEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got) != 1 || got[0].NewSeverity != stock.SeverityCritical {
		t.Errorf("alerts = %+v", got)
	}
}

func TestShowStats(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestShowConfigReportsEffectiveValues(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var cfg map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// Defaults resolve even with an empty file-level config.
	if cfg["min_threshold"] != float64(5) || cfg["critical_threshold"] != float64(2) {
		t.Errorf("thresholds = %v, %v", cfg["min_threshold"], cfg["critical_threshold"])
	}
	if cfg["frame_interval"] != "1s" {
		t.Errorf("frame_interval = %v", cfg["frame_interval"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, target := range []string{"/inventory", "/transactions", "/alerts", "/stats", "/config"} {
		rec := doRequest(t, srv, http.MethodPost, target)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: status = %d, want 405", target, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Healthz(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandleStockChart(t *testing.T) {
	srv, lg, store := newTestServer(t)
	seedInventory(t, store)

	if _, err := lg.Append(context.Background(), &stock.Transaction{
		RunID: "run-1", FrameID: 1, SKU: "laptop-box",
		Delta: 2, Kind: stock.KindAdd, ResultingCount: 2,
		SeverityAfter: stock.SeverityCritical,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/charts/stock", nil)
	rec := httptest.NewRecorder()
	srv.HandleStockChart(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "laptop-box") {
		t.Error("chart body does not mention the SKU series")
	}
}
