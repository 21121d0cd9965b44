package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HandleStockChart renders an HTML line chart of recent resulting counts
// per SKU straight from the ledger. Debug-only endpoint; the dashboard
// proper polls the JSON API instead.
//
// Query params:
//   - points (optional; default 200, max 2000) per-SKU history depth
func (s *Server) HandleStockChart(w http.ResponseWriter, r *http.Request) {
	points := 200
	if p := r.URL.Query().Get("points"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 && v <= 2000 {
			points = v
		}
	}

	records, err := s.snapshots.ListAll(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list inventory: %v", err))
		return
	}
	if len(records) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no inventory records yet")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Stock Levels", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Stock level history", Subtitle: fmt.Sprintf("last %d transactions per SKU", points)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ledger seq"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var labels []string
	for _, rec := range records {
		txns, err := s.ledger.ListRecentBySKU(r.Context(), rec.SKU, points)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read ledger: %v", err))
			return
		}

		data := make([]opts.LineData, 0, len(txns))
		for _, txn := range txns {
			data = append(data, opts.LineData{Value: []interface{}{txn.Seq, txn.ResultingCount}})
		}
		name := string(rec.SKU)
		labels = append(labels, name)
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))
	}

	if len(labels) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no ledger history yet")
		return
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
