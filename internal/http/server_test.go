package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tierdb/pkg/compaction"
	"tierdb/pkg/metrics"
	"tierdb/pkg/sstable"
)

func newTestServer(t *testing.T, minThreshold int) (*httptest.Server, *sstable.Registry) {
	t.Helper()

	strategy, _, err := compaction.NewSizeTieredStrategy(minThreshold, 32, map[string]string{
		compaction.MinSSTableSizeKey: "2",
	})
	if err != nil {
		t.Fatalf("failed to build strategy: %v", err)
	}

	registry := sstable.NewRegistry()
	srv := NewServer(registry, strategy, metrics.NewCollector(), "0")
	ts := httptest.NewServer(srv.createRouter())
	t.Cleanup(ts.Close)

	return ts, registry
}

func decodeResponse(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return r
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, 4)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if r := decodeResponse(t, resp); r.Status != StatusOK {
		t.Fatalf("expected OK status, got %s", r.Status)
	}
}

func TestAddAndListTables(t *testing.T) {
	ts, registry := newTestServer(t, 4)

	for i := 0; i < 3; i++ {
		body, _ := json.Marshal(addTableRequest{
			Path:          fmt.Sprintf("t%d.sst", i),
			SizeBytes:     1000,
			EstimatedKeys: 100,
		})
		resp, err := http.Post(ts.URL+"/api/tables", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("add table failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		r := decodeResponse(t, resp)
		if r.Table == nil || r.Table.ID == 0 {
			t.Fatalf("expected assigned table id, got %+v", r.Table)
		}
	}

	if registry.Len() != 3 {
		t.Fatalf("expected 3 registered tables, got %d", registry.Len())
	}

	resp, err := http.Get(ts.URL + "/api/tables")
	if err != nil {
		t.Fatalf("list tables failed: %v", err)
	}
	if r := decodeResponse(t, resp); len(r.Tables) != 3 {
		t.Fatalf("expected 3 tables listed, got %d", len(r.Tables))
	}
}

func TestAddTableRejectsNegativeSize(t *testing.T) {
	ts, _ := newTestServer(t, 4)

	body, _ := json.Marshal(addTableRequest{SizeBytes: -1})
	resp, err := http.Post(ts.URL+"/api/tables", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMarkReads(t *testing.T) {
	ts, registry := newTestServer(t, 4)

	table := sstable.New(registry.NextID(), "t.sst", 1000, 100)
	registry.Add(table)

	resp, err := http.Post(fmt.Sprintf("%s/api/tables/%d/reads?count=42", ts.URL, table.ID()), "", nil)
	if err != nil {
		t.Fatalf("mark reads failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	m := table.ReadMeter()
	if m == nil || m.Count() != 42 {
		t.Fatalf("expected 42 reads recorded, got %+v", m)
	}

	// unknown table
	resp, err = http.Post(ts.URL+"/api/tables/9999/reads", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown table, got %d", resp.StatusCode)
	}
}

func TestNextCandidates(t *testing.T) {
	ts, registry := newTestServer(t, 2)

	// two similar-sized tables, both warm enough to bucket together
	for i := 0; i < 2; i++ {
		table := sstable.New(registry.NextID(), fmt.Sprintf("t%d.sst", i), 1000, 100)
		table.MarkRead(10)
		registry.Add(table)
	}

	resp, err := http.Get(ts.URL + "/api/compaction/next")
	if err != nil {
		t.Fatalf("next candidates failed: %v", err)
	}
	if r := decodeResponse(t, resp); len(r.Tables) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(r.Tables))
	}
}

func TestNextCandidatesEmpty(t *testing.T) {
	ts, _ := newTestServer(t, 4)

	resp, err := http.Get(ts.URL + "/api/compaction/next")
	if err != nil {
		t.Fatal(err)
	}
	if r := decodeResponse(t, resp); len(r.Tables) != 0 {
		t.Fatalf("expected no candidates for an empty registry, got %d", len(r.Tables))
	}
}
