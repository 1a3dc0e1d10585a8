package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOperation("AcceptJob", time.Now(), nil)
	m.ObserveOperation("AcceptJob", time.Now(), errors.New("boom"))
	m.ObserveOperation("ShipEquipmentBatch", time.Now(), nil)

	if got := testutil.ToFloat64(m.WorkflowOperations.WithLabelValues("AcceptJob", OutcomeSuccess)); got != 1 {
		t.Errorf("Expected 1 successful AcceptJob, got %v", got)
	}
	if got := testutil.ToFloat64(m.WorkflowOperations.WithLabelValues("AcceptJob", OutcomeError)); got != 1 {
		t.Errorf("Expected 1 failed AcceptJob, got %v", got)
	}
	if got := testutil.CollectAndCount(m.WorkflowDuration); got != 2 {
		t.Errorf("Expected 2 duration series, got %d", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Discrepancies.Add(2)
	m.SnapshotRows.Set(5)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Expected scrape to succeed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Expected body read to succeed: %v", err)
	}
	body := string(raw)
	for _, want := range []string{"fieldflow_equipment_discrepancies_total 2", "fieldflow_snapshot_rows 5"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in scrape output", want)
		}
	}
}
