// internal/fetch/client_test.go
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecoscope/geosync/pkg/core"
)

var testRegion = core.Region{South: 51.4, West: -0.2, North: 51.6, East: 0.0}

func TestNew_Defaults(t *testing.T) {
	c := New("https://api.example.test/v1/", 0, 0)

	if c.baseURL != "https://api.example.test/v1" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.maxResults != DefaultMaxResults {
		t.Errorf("expected default max results %d, got %d", DefaultMaxResults, c.maxResults)
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %v", c.httpClient.Timeout)
	}
}

func TestFetch_QueryParameters(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/observations" {
			t.Errorf("expected path /observations, got %s", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"total_results":0,"results":[]}`))
	}))
	defer server.Close()

	c := New(server.URL, 50, time.Second)
	_, err := c.Fetch(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]string{
		"swlat":         "51.4",
		"swlng":         "-0.2",
		"nelat":         "51.6",
		"nelng":         "0",
		"per_page":      "50",
		"order":         "desc",
		"order_by":      "created_at",
		"photos":        "true",
		"captive":       "false",
		"quality_grade": "research",
	}
	for k, want := range expected {
		if query[k] != want {
			t.Errorf("expected %s=%s, got %s", k, want, query[k])
		}
	}
}

func TestFetch_ValidBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"total_results": 2,
			"results": [
				{
					"id": 101,
					"location": "51.5074,-0.1278",
					"observed_on": "2026-08-20",
					"created_at": "2026-08-21T09:15:00Z",
					"photos": [{"url": "https://static.example.test/p/101.jpg"}],
					"taxon": {"name": "Erithacus rubecula", "preferred_common_name": "European Robin", "iconic_taxon_name": "Aves"},
					"user": {"login": "birdfan42"}
				},
				{
					"id": 102,
					"location": "51.5100,-0.1300",
					"observed_on": "2026-08-19",
					"created_at": "2026-08-20T18:02:00Z",
					"photos": [],
					"taxon": {"name": "Vulpes vulpes", "preferred_common_name": "Red Fox", "iconic_taxon_name": "Mammalia"},
					"user": {"login": "foxwatcher"}
				}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	records, err := c.Fetch(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != 101 {
		t.Errorf("expected id 101, got %d", first.ID)
	}
	if first.Coordinate.Lat != 51.5074 || first.Coordinate.Lng != -0.1278 {
		t.Errorf("unexpected coordinate: %+v", first.Coordinate)
	}
	if first.Taxon.CommonName != "European Robin" {
		t.Errorf("expected common name 'European Robin', got %q", first.Taxon.CommonName)
	}
	if first.Submitter != "birdfan42" {
		t.Errorf("expected submitter 'birdfan42', got %q", first.Submitter)
	}
	if !first.HasPhoto() {
		t.Error("expected first record to have a photo")
	}

	// Empty photo list is allowed, never an error.
	if records[1].HasPhoto() {
		t.Error("expected second record to have no photos")
	}
}

func TestFetch_NetworkError(t *testing.T) {
	c := New("http://localhost:59998", 100, 200*time.Millisecond)

	_, err := c.Fetch(context.Background(), testRegion)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	_, err := c.Fetch(context.Background(), testRegion)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork for 500 response, got %v", err)
	}
}

func TestFetch_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_results": 1, "results": [{`))
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	_, err := c.Fetch(context.Background(), testRegion)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestFetch_SkipsRecordWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"total_results": 2,
			"results": [
				{"id": 1, "location": "", "taxon": {"name": "Erithacus rubecula"}, "user": {"login": "a"}},
				{"id": 2, "location": "51.5,-0.1", "taxon": {"name": "Vulpes vulpes"}, "user": {"login": "b"}}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	records, err := c.Fetch(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != 2 {
		t.Fatalf("expected only record 2, got %+v", records)
	}
}

func TestFetch_SkipsRecordWithoutTaxon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"total_results": 2,
			"results": [
				{"id": 1, "location": "51.5,-0.1", "user": {"login": "a"}},
				{"id": 2, "location": "51.5,-0.1", "taxon": {"name": "", "preferred_common_name": "", "iconic_taxon_name": ""}, "user": {"login": "b"}}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	records, err := c.Fetch(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestFetch_SkipsDuplicateIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"total_results": 2,
			"results": [
				{"id": 7, "location": "51.5,-0.1", "taxon": {"name": "Erithacus rubecula"}, "user": {"login": "a"}},
				{"id": 7, "location": "51.6,-0.2", "taxon": {"name": "Erithacus rubecula"}, "user": {"login": "b"}}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, 100, time.Second)
	records, err := c.Fetch(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after dedup, got %d", len(records))
	}
	if records[0].Coordinate.Lat != 51.5 {
		t.Error("expected the first occurrence to win")
	}
}

func TestFetch_InvalidRegion(t *testing.T) {
	c := New("http://localhost:59998", 100, time.Second)

	_, err := c.Fetch(context.Background(), core.Region{South: 10, North: -10})
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse for inverted region, got %v", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(server.URL, 100, time.Second)
	_, err := c.Fetch(ctx, testRegion)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork for cancelled context, got %v", err)
	}
}
